// Package storage manages exported artifacts on the local filesystem.
//
// Artifacts are named date-author-id.md so the existence index can narrow
// filesystem scans by date prefix when a post's timestamp is known. The
// index answers "already exported?" before any network call is spent on a
// candidate post, which is what makes repeated invocations cheap and safe.
//
// The package also owns the append-only error log and the media directory
// for downloaded attachments.
package storage
