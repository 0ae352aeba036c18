package integration

import (
	"testing"
	"time"

	"bmexporter/pkg/config"
	"bmexporter/pkg/export"
	"bmexporter/pkg/logger"
	"bmexporter/pkg/twitter"
)

// TestHelper wires a real client and exporter against the mock server,
// with all state kept in per-test temp directories.
type TestHelper struct {
	t      *testing.T
	Server *MockPlatformServer
	Config *config.Config
}

// NewTestHelper creates a helper with a running mock server.
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	server := NewMockPlatformServer()

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = server.URL()
	cfg.Export.StateDir = t.TempDir()
	cfg.Export.PolitenessDelay = 0
	cfg.Output.Directory = t.TempDir()
	cfg.Download.Enabled = false
	cfg.RateLimit.RequestsPerMinute = 600

	return &TestHelper{
		t:      t,
		Server: server,
		Config: cfg,
	}
}

// Cleanup shuts the mock server down.
func (h *TestHelper) Cleanup() {
	h.Server.Close()
}

// NewExporter builds an exporter over a client pointed at the mock server.
func (h *TestHelper) NewExporter() *export.Exporter {
	h.t.Helper()

	client := twitter.NewClient(h.Config.API.BaseURL, 5*time.Second, logger.NewNopLogger())
	client.SetCredentials("test-auth-token", "test-csrf-token", "test-agent")

	e, err := export.New(h.Config, client)
	if err != nil {
		h.t.Fatalf("Failed to create exporter: %v", err)
	}
	return e
}

// Post builds a wire post with sensible defaults.
func Post(id, author, text string) wirePost {
	return wirePost{
		ID:           id,
		AuthorHandle: author,
		CreatedAt:    time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC),
		FullText:     text,
	}
}
