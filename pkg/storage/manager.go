package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bmexporter/pkg/models"
)

// Manager handles archive file storage and the existence index. The index
// is the idempotence boundary: it is consulted before any network fetch is
// spent on a candidate post.
type Manager struct {
	outputDir string
	mediaDir  string
	index     map[string]string // post id -> artifact filename
}

// NewManager creates a storage manager rooted at outputDir.
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	mediaDir := filepath.Join(outputDir, "media")
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		mediaDir:  mediaDir,
		index:     make(map[string]string),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles loads already-exported artifacts into the index.
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		if id := idFromArtifactName(entry.Name()); id != "" {
			m.index[id] = entry.Name()
		}
	}

	return nil
}

// ArtifactName builds the artifact filename: date, author, id.
func ArtifactName(post *models.Post) string {
	return fmt.Sprintf("%s-%s-%s.md", post.CreatedAt.UTC().Format("2006-01-02"), post.Author, post.ID)
}

// idFromArtifactName extracts the post id from an artifact filename.
// Handles contain no hyphens, so the id is the final hyphen-separated
// token.
func idFromArtifactName(name string) string {
	name = strings.TrimSuffix(name, ".md")
	idx := strings.LastIndex(name, "-")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}

// Exists reports whether the post has already been exported. A zero
// createdAt widens the filesystem scan.
func (m *Manager) Exists(postID string, createdAt time.Time) bool {
	_, ok := m.Locate(postID, createdAt)
	return ok
}

// Locate returns the artifact path for a post id, narrowing the pattern
// scan with the date prefix when known.
func (m *Manager) Locate(postID string, createdAt time.Time) (string, bool) {
	if name, ok := m.index[postID]; ok {
		return filepath.Join(m.outputDir, name), true
	}

	pattern := fmt.Sprintf("*-%s.md", postID)
	if !createdAt.IsZero() {
		pattern = fmt.Sprintf("%s-*-%s.md", createdAt.UTC().Format("2006-01-02"), postID)
	}

	matches, err := filepath.Glob(filepath.Join(m.outputDir, pattern))
	if err != nil || len(matches) == 0 {
		return "", false
	}

	m.index[postID] = filepath.Base(matches[0])
	return matches[0], true
}

// OutputDir returns the output directory path.
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// MediaDir returns the media directory path.
func (m *Manager) MediaDir() string {
	return m.mediaDir
}

// ExportedCount returns the number of indexed artifacts.
func (m *Manager) ExportedCount() int {
	return len(m.index)
}

// SaveMedia writes one media file for a post, named from the post id and
// the attachment's position.
func (m *Manager) SaveMedia(postID string, position int, mediaURL string, data []byte) (string, error) {
	ext := filepath.Ext(mediaURL)
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	if ext == "" {
		ext = ".bin"
	}

	filename := fmt.Sprintf("%s-%d%s", postID, position, ext)
	path := filepath.Join(m.mediaDir, filename)

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename media file: %w", err)
	}

	return filename, nil
}

// MediaComplete reports whether every media attachment of the post is
// present on disk. Used as the idempotence predicate for media backfill.
func (m *Manager) MediaComplete(post *models.Post) bool {
	if len(post.Media) == 0 {
		return true
	}
	matches, err := filepath.Glob(filepath.Join(m.mediaDir, post.ID+"-*"))
	if err != nil {
		return false
	}
	return len(matches) >= len(post.Media)
}
