package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bmexporter/pkg/models"
)

const errorLogName = "errors.json"

// AppendError appends one entry to the durable error log. The log is
// append-only; entries are kept for manual follow-up via single-post
// reprocessing.
func (m *Manager) AppendError(entry models.ExportError) error {
	entries, err := m.ReadErrors()
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode error log: %w", err)
	}

	path := filepath.Join(m.outputDir, errorLogName)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename error log: %w", err)
	}

	return nil
}

// ReadErrors loads the error log. A missing log returns an empty slice.
func (m *Manager) ReadErrors() ([]models.ExportError, error) {
	path := filepath.Join(m.outputDir, errorLogName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read error log: %w", err)
	}

	var entries []models.ExportError
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode error log: %w", err)
	}
	return entries, nil
}
