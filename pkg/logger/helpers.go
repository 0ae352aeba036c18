package logger

import (
	"github.com/rs/zerolog"
)

// LogRateLimit logs a rate-limit pause. The exporter does not wait the
// limit out; it checkpoints and stops, so this is informational only.
func LogRateLimit(endpoint string, remainder int) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":       endpoint,
		"remainder_size": remainder,
		"action":         "rate_limited",
	}).Warn("Rate limit reached, checkpointing and stopping")
}

// LogExportProgress logs page-level export progress.
func LogExportProgress(page, exported, skipped, errored int) {
	GetLogger().WithFields(map[string]interface{}{
		"page":     page,
		"exported": exported,
		"skipped":  skipped,
		"errors":   errored,
	}).Info("Export progress")
}

// NewNopLogger creates a no-operation logger for tests.
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
