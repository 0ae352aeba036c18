// Package checkpoint persists export progress so a long, rate-limited run
// can be interrupted and resumed at post granularity.
//
// The checkpoint records:
//   - The next-page cursor and the unprocessed remainder of the current
//     page, so resumption never re-fetches or re-processes work.
//   - Boundary ids demarcating territory covered by prior completed runs.
//   - A completion flag and timestamp.
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/bmexporter/
//   - macOS: ~/Library/Application Support/bmexporter/
//   - Windows: %APPDATA%/bmexporter/
//
// Files are written atomically (temp file, fsync, rename) to prevent
// corruption and include a version field for future compatibility.
package checkpoint
