package storage

import (
	"os"
	"strings"
	"testing"
	"time"

	"bmexporter/pkg/models"
)

func TestWriteArchiveSections(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	created := time.Date(2025, 5, 20, 8, 30, 0, 0, time.UTC)
	post := models.Post{
		ID:        "42",
		Author:    "alice",
		CreatedAt: created,
		Text:      "main post text",
		Quoted: &models.Post{
			ID:     "41",
			Author: "bob",
			Text:   "quoted text",
			Quoted: &models.Post{
				ID:     "40",
				Author: "carol",
				Text:   "deeper quote",
			},
		},
	}

	archive := &Archive{
		Post: post,
		Thread: &models.ExpandedThread{
			Continuation: []models.Post{
				{ID: "43", Author: "alice", Text: "thread part two"},
			},
			Replies: []models.Post{
				{ID: "44", Author: "dan", Text: "nice post"},
			},
		},
		LinkTitles: map[string]string{
			"https://example.com/article": "Example Article",
		},
		MediaFiles: []string{"42-0.jpg"},
	}

	path, err := manager.WriteArchive(archive)
	if err != nil {
		t.Fatalf("WriteArchive failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	content := string(data)

	t.Run("FrontMatter", func(t *testing.T) {
		for _, want := range []string{"id: 42", "author: alice", "created_at: 2025-05-20T08:30:00Z"} {
			if !strings.Contains(content, want) {
				t.Errorf("Missing front matter line %q", want)
			}
		}
	})

	t.Run("Thread", func(t *testing.T) {
		if !strings.Contains(content, "## Thread") || !strings.Contains(content, "thread part two") {
			t.Error("Missing thread section")
		}
	})

	t.Run("Replies", func(t *testing.T) {
		if !strings.Contains(content, "## Replies") || !strings.Contains(content, "@dan: nice post") {
			t.Error("Missing replies section")
		}
	})

	t.Run("QuoteChainIndentation", func(t *testing.T) {
		if !strings.Contains(content, "> @bob: quoted text") {
			t.Error("Missing first quote level")
		}
		if !strings.Contains(content, "  > @carol: deeper quote") {
			t.Error("Missing indented second quote level")
		}
	})

	t.Run("Links", func(t *testing.T) {
		if !strings.Contains(content, "## Links") || !strings.Contains(content, "https://example.com/article: Example Article") {
			t.Error("Missing links section")
		}
	})

	t.Run("Media", func(t *testing.T) {
		if !strings.Contains(content, "## Media") || !strings.Contains(content, "media/42-0.jpg") {
			t.Error("Missing media section")
		}
	})

	t.Run("Predicates", func(t *testing.T) {
		if !manager.HasReplies(path) {
			t.Error("HasReplies should report true")
		}
		if !manager.HasLinkMetadata(path) {
			t.Error("HasLinkMetadata should report true")
		}
	})
}

func TestWriteArchiveMinimal(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	post := models.Post{
		ID:        "1",
		Author:    "eve",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Text:      "just text",
	}

	path, err := manager.WriteArchive(&Archive{Post: post})
	if err != nil {
		t.Fatalf("WriteArchive failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	content := string(data)

	for _, marker := range []string{"## Thread", "## Replies", "## Quoted", "## Links", "## Media"} {
		if strings.Contains(content, marker) {
			t.Errorf("Minimal artifact should not contain %q", marker)
		}
	}

	if manager.HasReplies(path) {
		t.Error("HasReplies should report false for minimal artifact")
	}
	if manager.HasLinkMetadata(path) {
		t.Error("HasLinkMetadata should report false for minimal artifact")
	}
}

func TestWriteArchiveIsIdempotent(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	post := models.Post{
		ID:        "9",
		Author:    "frank",
		CreatedAt: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
		Text:      "original",
	}

	first, err := manager.WriteArchive(&Archive{Post: post})
	if err != nil {
		t.Fatal(err)
	}

	// A rebuild re-writes the same artifact in place with new sections.
	second, err := manager.WriteArchive(&Archive{
		Post:       post,
		LinkTitles: map[string]string{"https://example.com": "Example"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("Re-write must target the same path: %s vs %s", first, second)
	}
	if !manager.HasLinkMetadata(second) {
		t.Error("Re-write should have added the links section")
	}
	if manager.ExportedCount() != 1 {
		t.Errorf("Re-write must not duplicate index entries, got %d", manager.ExportedCount())
	}
}
