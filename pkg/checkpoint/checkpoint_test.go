package checkpoint

import (
	"os"
	"testing"
	"time"

	"bmexporter/pkg/models"
)

func TestCheckpointManager(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "checkpoint_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("LoadMissingReturnsNil", func(t *testing.T) {
		mgr, err := NewManager(tempDir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cp != nil {
			t.Fatalf("Expected nil checkpoint for missing file, got %+v", cp)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		mgr, err := NewManager(tempDir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp := NewExportCheckpoint()
		cp.NextCursor = "cursor123"
		cp.PageNumber = 3
		cp.PageRemainder = []models.Post{
			{ID: "111", Author: "alice"},
			{ID: "222", Author: "bob"},
		}
		cp.PreviousRunBoundaryID = "999"

		if err := mgr.Save(cp); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded == nil {
			t.Fatal("Expected checkpoint, got nil")
		}
		if loaded.NextCursor != "cursor123" {
			t.Errorf("Expected cursor cursor123, got %s", loaded.NextCursor)
		}
		if loaded.PageNumber != 3 {
			t.Errorf("Expected page 3, got %d", loaded.PageNumber)
		}
		if len(loaded.PageRemainder) != 2 {
			t.Fatalf("Expected 2 remainder posts, got %d", len(loaded.PageRemainder))
		}
		if loaded.PageRemainder[0].ID != "111" {
			t.Errorf("Expected first remainder post 111, got %s", loaded.PageRemainder[0].ID)
		}
		if loaded.PreviousRunBoundaryID != "999" {
			t.Errorf("Expected boundary 999, got %s", loaded.PreviousRunBoundaryID)
		}
		if !loaded.HasPagination() {
			t.Error("Expected HasPagination to be true")
		}
	})

	t.Run("SaveIsAtomic", func(t *testing.T) {
		mgr, err := NewManager(tempDir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp := NewExportCheckpoint()
		cp.NextCursor = "abc"
		if err := mgr.Save(cp); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if _, err := os.Stat(mgr.Path() + ".tmp"); !os.IsNotExist(err) {
			t.Error("Temporary file should not remain after save")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mgr, err := NewManager(tempDir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp := NewExportCheckpoint()
		if err := mgr.Save(cp); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if !mgr.Exists() {
			t.Fatal("Expected checkpoint to exist")
		}

		if err := mgr.Delete(); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if mgr.Exists() {
			t.Error("Expected checkpoint to be gone")
		}

		// Deleting a missing checkpoint is not an error
		if err := mgr.Delete(); err != nil {
			t.Errorf("Delete of missing checkpoint failed: %v", err)
		}
	})
}

func TestMarkCompleted(t *testing.T) {
	t.Run("PromotesBoundary", func(t *testing.T) {
		cp := NewExportCheckpoint()
		cp.PreviousRunBoundaryID = "old"
		cp.ThisRunBoundaryID = "new"
		cp.NextCursor = "cursor"
		cp.PageRemainder = []models.Post{{ID: "1"}}
		cp.PageNumber = 7

		at := time.Now()
		cp.MarkCompleted(at)

		if !cp.Completed {
			t.Error("Expected Completed to be true")
		}
		if cp.CompletedAt == nil || !cp.CompletedAt.Equal(at) {
			t.Error("Expected CompletedAt to be set")
		}
		if cp.PreviousRunBoundaryID != "new" {
			t.Errorf("Expected promoted boundary new, got %s", cp.PreviousRunBoundaryID)
		}
		if cp.ThisRunBoundaryID != "" {
			t.Errorf("Expected this-run boundary cleared, got %s", cp.ThisRunBoundaryID)
		}
		if cp.HasPagination() || cp.PageNumber != 0 {
			t.Error("Expected pagination state cleared")
		}
	})

	t.Run("KeepsOldBoundaryWhenNothingExported", func(t *testing.T) {
		cp := NewExportCheckpoint()
		cp.PreviousRunBoundaryID = "old"

		cp.MarkCompleted(time.Now())

		// A run that exported nothing must not erase the boundary, or the
		// next run would rescan the whole timeline.
		if cp.PreviousRunBoundaryID != "old" {
			t.Errorf("Expected boundary old preserved, got %s", cp.PreviousRunBoundaryID)
		}
	})
}

func TestClearPagination(t *testing.T) {
	cp := NewExportCheckpoint()
	cp.NextCursor = "cursor"
	cp.PageRemainder = []models.Post{{ID: "1"}}
	cp.PageNumber = 2
	cp.PreviousRunBoundaryID = "b"

	cp.ClearPagination()

	if cp.HasPagination() {
		t.Error("Expected pagination cleared")
	}
	if cp.PreviousRunBoundaryID != "b" {
		t.Error("Expected boundary untouched")
	}
}
