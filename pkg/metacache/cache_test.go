package metacache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetOrFetch(t *testing.T) {
	tempDir := t.TempDir()
	cache := New(tempDir)

	calls := 0
	fetcher := func(url string) (string, error) {
		calls++
		return "Example Title", nil
	}

	value, err := cache.GetOrFetch("https://example.com", fetcher)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if value != "Example Title" {
		t.Errorf("Expected Example Title, got %s", value)
	}
	if calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", calls)
	}

	// Second lookup is served from cache.
	value, err = cache.GetOrFetch("https://example.com", fetcher)
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if value != "Example Title" {
		t.Errorf("Expected cached value, got %s", value)
	}
	if calls != 1 {
		t.Errorf("Expected no second fetch, got %d calls", calls)
	}
}

func TestFlushAfterEveryWrite(t *testing.T) {
	tempDir := t.TempDir()
	cache := New(tempDir)

	if _, err := cache.GetOrFetch("https://example.com", func(string) (string, error) {
		return "Title", nil
	}); err != nil {
		t.Fatal(err)
	}

	// The backing document exists immediately, not at process end.
	if _, err := os.Stat(filepath.Join(tempDir, "metadata-cache.json")); err != nil {
		t.Fatalf("Expected cache document on disk: %v", err)
	}

	// A fresh cache over the same directory sees the entry.
	fresh := New(tempDir)
	value, err := fresh.GetOrFetch("https://example.com", func(string) (string, error) {
		t.Fatal("Fetcher should not run for a persisted fresh entry")
		return "", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if value != "Title" {
		t.Errorf("Expected persisted value, got %s", value)
	}
}

func TestTTL(t *testing.T) {
	tempDir := t.TempDir()
	cache := New(tempDir)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	if _, err := cache.GetOrFetch("https://example.com", func(string) (string, error) {
		return "Old Title", nil
	}); err != nil {
		t.Fatal(err)
	}

	t.Run("SixDaysFresh", func(t *testing.T) {
		cache.now = func() time.Time { return base.Add(6 * 24 * time.Hour) }
		value, err := cache.GetOrFetch("https://example.com", func(string) (string, error) {
			t.Fatal("Fetcher should not run inside the TTL")
			return "", nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if value != "Old Title" {
			t.Errorf("Expected cached value, got %s", value)
		}
	})

	t.Run("EightDaysStale", func(t *testing.T) {
		cache.now = func() time.Time { return base.Add(8 * 24 * time.Hour) }
		value, err := cache.GetOrFetch("https://example.com", func(string) (string, error) {
			return "New Title", nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if value != "New Title" {
			t.Errorf("Expected refetched value, got %s", value)
		}
	})
}

func TestFetchErrorNotCached(t *testing.T) {
	tempDir := t.TempDir()
	cache := New(tempDir)

	wantErr := errors.New("connection refused")
	if _, err := cache.GetOrFetch("https://example.com", func(string) (string, error) {
		return "", wantErr
	}); err != wantErr {
		t.Fatalf("Expected fetch error surfaced, got %v", err)
	}

	if cache.Len() != 0 {
		t.Error("Failed fetches must not be cached")
	}

	// The next lookup tries again.
	value, err := cache.GetOrFetch("https://example.com", func(string) (string, error) {
		return "Recovered", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if value != "Recovered" {
		t.Errorf("Expected Recovered, got %s", value)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cache := New(t.TempDir())
	if err := cache.Load(); err != nil {
		t.Fatalf("Load of missing document should succeed: %v", err)
	}
	if cache.Len() != 0 {
		t.Error("Expected empty cache")
	}
}
