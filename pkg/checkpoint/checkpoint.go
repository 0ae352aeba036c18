package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"bmexporter/pkg/logger"
	"bmexporter/pkg/models"
)

// ExportCheckpoint is the durable record of export progress. It is re-read
// at every invocation start and mutated after every page fetch and every
// successful post write.
type ExportCheckpoint struct {
	// Pagination state for the in-flight run.
	NextCursor    string        `json:"next_cursor,omitempty"`
	PageRemainder []models.Post `json:"page_remainder,omitempty"`
	PageNumber    int           `json:"page_number,omitempty"`

	// PreviousRunBoundaryID is the first post exported by the prior
	// completed run. Re-encountering it during forward pagination is the
	// authoritative stop signal.
	PreviousRunBoundaryID string `json:"previous_run_boundary_id,omitempty"`

	// ThisRunBoundaryID is set once, to the first post actually exported
	// (not skipped) this run. It is promoted to PreviousRunBoundaryID
	// only at clean completion.
	ThisRunBoundaryID string `json:"this_run_boundary_id,omitempty"`

	Completed   bool       `json:"completed,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// NewExportCheckpoint creates an empty checkpoint.
func NewExportCheckpoint() *ExportCheckpoint {
	now := time.Now()
	return &ExportCheckpoint{
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// HasPagination reports whether an interrupted run left pagination state
// behind.
func (cp *ExportCheckpoint) HasPagination() bool {
	return cp.NextCursor != "" || len(cp.PageRemainder) > 0
}

// ClearPagination drops cursor and remainder state while preserving the
// boundary and completion fields.
func (cp *ExportCheckpoint) ClearPagination() {
	cp.NextCursor = ""
	cp.PageRemainder = nil
	cp.PageNumber = 0
}

// MarkCompleted records a clean end-of-scope completion and promotes the
// run boundary.
func (cp *ExportCheckpoint) MarkCompleted(at time.Time) {
	cp.Completed = true
	cp.CompletedAt = &at
	if cp.ThisRunBoundaryID != "" {
		cp.PreviousRunBoundaryID = cp.ThisRunBoundaryID
	}
	cp.ThisRunBoundaryID = ""
	cp.ClearPagination()
}

// Manager handles checkpoint persistence.
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a checkpoint manager. An empty stateDir falls back to
// the platform data directory.
func NewManager(stateDir string) (*Manager, error) {
	if stateDir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		stateDir = dataDir
	}

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Manager{
		checkpointPath: filepath.Join(stateDir, "export.checkpoint.json"),
		logger:         logger.GetLogger(),
	}, nil
}

// Path returns the checkpoint file path.
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Load loads the existing checkpoint. A missing file returns (nil, nil).
func (m *Manager) Load() (*ExportCheckpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp ExportCheckpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"next_cursor":       cp.NextCursor,
		"remainder_size":    len(cp.PageRemainder),
		"previous_boundary": cp.PreviousRunBoundaryID,
		"completed":         cp.Completed,
		"updated_at":        cp.UpdatedAt,
	})

	return &cp, nil
}

// Save saves the checkpoint to disk atomically. A failed save makes
// resumption unsafe, so callers treat the error as fatal for the run.
func (m *Manager) Save(cp *ExportCheckpoint) error {
	cp.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"next_cursor":    cp.NextCursor,
		"remainder_size": len(cp.PageRemainder),
		"page_number":    cp.PageNumber,
	})

	return nil
}

// Delete removes the checkpoint file.
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks whether a checkpoint file exists.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// getDataDirectory returns the platform data directory.
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "bmexporter")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "bmexporter")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "bmexporter")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "bmexporter")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
