package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bmexporter/pkg/models"
)

func testPost(id, author string, created time.Time) *models.Post {
	return &models.Post{
		ID:        id,
		Author:    author,
		CreatedAt: created,
		Text:      "hello world",
	}
}

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.ExportedCount() != 0 {
		t.Error("Expected initial exported count to be 0")
	}

	if manager.Exists("123", time.Time{}) {
		t.Error("Expected Exists to return false for unknown post")
	}

	created := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	post := testPost("123456", "alice", created)

	path, err := manager.WriteArchive(&Archive{Post: *post})
	if err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}

	expectedName := "2025-03-14-alice-123456.md"
	if filepath.Base(path) != expectedName {
		t.Errorf("Expected artifact name %s, got %s", expectedName, filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected artifact on disk: %v", err)
	}

	if !manager.Exists("123456", created) {
		t.Error("Expected Exists to return true after write")
	}
	if manager.ExportedCount() != 1 {
		t.Errorf("Expected exported count 1, got %d", manager.ExportedCount())
	}
}

func TestManagerScansExistingFiles(t *testing.T) {
	tempDir := t.TempDir()

	name := "2025-01-02-bob-987654.md"
	if err := os.WriteFile(filepath.Join(tempDir, name), []byte("body"), 0644); err != nil {
		t.Fatalf("Failed to seed artifact: %v", err)
	}
	// Non-artifact files are ignored by the scan.
	if err := os.WriteFile(filepath.Join(tempDir, "errors.json"), []byte("[]"), 0644); err != nil {
		t.Fatalf("Failed to seed error log: %v", err)
	}

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.ExportedCount() != 1 {
		t.Errorf("Expected 1 indexed artifact, got %d", manager.ExportedCount())
	}
	if !manager.Exists("987654", time.Time{}) {
		t.Error("Expected seeded artifact to be indexed by id")
	}
}

func TestLocateWithAndWithoutDate(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	created := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	name := "2024-07-01-carol-555.md"
	if err := os.WriteFile(filepath.Join(tempDir, name), []byte("body"), 0644); err != nil {
		t.Fatalf("Failed to seed artifact: %v", err)
	}
	// Bypass the index so Locate falls through to the filesystem scan.
	delete(manager.index, "555")

	t.Run("DateNarrowsScan", func(t *testing.T) {
		path, ok := manager.Locate("555", created)
		if !ok {
			t.Fatal("Expected artifact to be found with date")
		}
		if filepath.Base(path) != name {
			t.Errorf("Expected %s, got %s", name, filepath.Base(path))
		}
	})

	t.Run("ZeroDateWidensScan", func(t *testing.T) {
		delete(manager.index, "555")
		path, ok := manager.Locate("555", time.Time{})
		if !ok {
			t.Fatal("Expected artifact to be found without date")
		}
		if filepath.Base(path) != name {
			t.Errorf("Expected %s, got %s", name, filepath.Base(path))
		}
	})

	t.Run("WrongDateMisses", func(t *testing.T) {
		delete(manager.index, "555")
		if _, ok := manager.Locate("555", created.AddDate(0, 0, 1)); ok {
			t.Error("Expected miss with a mismatched date")
		}
	})
}

func TestIDFromArtifactName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"2025-03-14-alice-123456.md", "123456"},
		{"2025-03-14-a-1.md", "1"},
		{"nohyphen.md", ""},
		{"trailing-.md", ""},
	}

	for _, test := range tests {
		if got := idFromArtifactName(test.name); got != test.want {
			t.Errorf("idFromArtifactName(%q) = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestSaveMedia(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	filename, err := manager.SaveMedia("123", 0, "https://cdn.example.com/img/photo.jpg?name=large", []byte("jpegdata"))
	if err != nil {
		t.Fatalf("Failed to save media: %v", err)
	}
	if filename != "123-0.jpg" {
		t.Errorf("Expected filename 123-0.jpg, got %s", filename)
	}

	data, err := os.ReadFile(filepath.Join(manager.MediaDir(), filename))
	if err != nil {
		t.Fatalf("Failed to read media file: %v", err)
	}
	if string(data) != "jpegdata" {
		t.Error("Media content does not match")
	}

	t.Run("ExtensionFallback", func(t *testing.T) {
		filename, err := manager.SaveMedia("123", 1, "https://cdn.example.com/stream", []byte("x"))
		if err != nil {
			t.Fatalf("Failed to save media: %v", err)
		}
		if filename != "123-1.bin" {
			t.Errorf("Expected fallback extension .bin, got %s", filename)
		}
	})
}

func TestMediaComplete(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	post := testPost("777", "dave", time.Now())

	if !manager.MediaComplete(post) {
		t.Error("Post without media should always be complete")
	}

	post.Media = []models.Media{
		{URL: "https://cdn.example.com/a.jpg", Type: "photo"},
		{URL: "https://cdn.example.com/b.jpg", Type: "photo"},
	}

	if manager.MediaComplete(post) {
		t.Error("Expected incomplete with no files on disk")
	}

	if _, err := manager.SaveMedia("777", 0, post.Media[0].URL, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if manager.MediaComplete(post) {
		t.Error("Expected incomplete with one of two files")
	}

	if _, err := manager.SaveMedia("777", 1, post.Media[1].URL, []byte("b")); err != nil {
		t.Fatal(err)
	}
	if !manager.MediaComplete(post) {
		t.Error("Expected complete with both files on disk")
	}
}

func TestErrorLog(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	entries, err := manager.ReadErrors()
	if err != nil {
		t.Fatalf("ReadErrors failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty log, got %d entries", len(entries))
	}

	first := models.ExportError{PostID: "1", Message: "fetch failed", Timestamp: time.Now(), Context: "post processing"}
	second := models.ExportError{PostID: "2", Message: "parse failed", Timestamp: time.Now(), Context: "post processing"}

	if err := manager.AppendError(first); err != nil {
		t.Fatalf("AppendError failed: %v", err)
	}
	if err := manager.AppendError(second); err != nil {
		t.Fatalf("AppendError failed: %v", err)
	}

	entries, err = manager.ReadErrors()
	if err != nil {
		t.Fatalf("ReadErrors failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].PostID != "1" || entries[1].PostID != "2" {
		t.Error("Entries out of order, log must be append-only")
	}
	if !strings.Contains(entries[0].Message, "fetch failed") {
		t.Error("Entry message lost")
	}
}
