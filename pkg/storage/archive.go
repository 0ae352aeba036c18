package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bmexporter/pkg/models"
)

// Archive is one post with its full conversational context, ready to be
// written as a single artifact.
type Archive struct {
	Post       models.Post
	Thread     *models.ExpandedThread
	LinkTitles map[string]string
	MediaFiles []string
}

// Section markers used both by the renderer and by the backfill
// idempotence predicates.
const (
	repliesMarker = "## Replies"
	linksMarker   = "## Links"
	threadMarker  = "## Thread"
	quoteMarker   = "## Quoted"
	mediaMarker   = "## Media"
)

// WriteArchive renders and atomically writes the artifact for a post,
// returning its path. Re-writing an existing artifact is allowed; rebuild
// mode uses it to backfill missing sections.
func (m *Manager) WriteArchive(archive *Archive) (string, error) {
	name := ArtifactName(&archive.Post)
	path := filepath.Join(m.outputDir, name)

	content := renderArchive(archive)

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename artifact: %w", err)
	}

	m.index[archive.Post.ID] = name
	return path, nil
}

// renderArchive produces the artifact body. The markup is deliberately
// plain; the artifact exists so the pipeline produces real files the
// existence index can probe.
func renderArchive(archive *Archive) string {
	var b strings.Builder
	post := &archive.Post

	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: %s\n", post.ID)
	fmt.Fprintf(&b, "author: %s\n", post.Author)
	fmt.Fprintf(&b, "created_at: %s\n", post.CreatedAt.UTC().Format(time.RFC3339))
	b.WriteString("---\n\n")

	b.WriteString(post.Text)
	b.WriteString("\n")

	if archive.Thread != nil && len(archive.Thread.Continuation) > 0 {
		fmt.Fprintf(&b, "\n%s\n\n", threadMarker)
		for _, p := range archive.Thread.Continuation {
			fmt.Fprintf(&b, "- %s\n", singleLine(p.Text))
		}
	}

	if archive.Thread != nil && len(archive.Thread.Replies) > 0 {
		fmt.Fprintf(&b, "\n%s\n\n", repliesMarker)
		for _, p := range archive.Thread.Replies {
			fmt.Fprintf(&b, "- @%s: %s\n", p.Author, singleLine(p.Text))
		}
	}

	if post.Quoted != nil {
		fmt.Fprintf(&b, "\n%s\n\n", quoteMarker)
		writeQuoteChain(&b, post.Quoted, 0)
	}

	if len(archive.LinkTitles) > 0 {
		fmt.Fprintf(&b, "\n%s\n\n", linksMarker)
		urls := make([]string, 0, len(archive.LinkTitles))
		for url := range archive.LinkTitles {
			urls = append(urls, url)
		}
		sort.Strings(urls)
		for _, url := range urls {
			fmt.Fprintf(&b, "- %s: %s\n", url, archive.LinkTitles[url])
		}
	}

	if len(archive.MediaFiles) > 0 {
		fmt.Fprintf(&b, "\n%s\n\n", mediaMarker)
		for _, f := range archive.MediaFiles {
			fmt.Fprintf(&b, "- media/%s\n", f)
		}
	}

	return b.String()
}

// writeQuoteChain renders a nested quote chain with increasing indentation.
func writeQuoteChain(b *strings.Builder, post *models.Post, level int) {
	indent := strings.Repeat("  ", level)
	fmt.Fprintf(b, "%s> @%s: %s\n", indent, post.Author, singleLine(post.Text))
	if post.Quoted != nil {
		writeQuoteChain(b, post.Quoted, level+1)
	}
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HasReplies reports whether the stored artifact already carries a replies
// section. Idempotence predicate for the replies backfill.
func (m *Manager) HasReplies(path string) bool {
	return artifactHasSection(path, repliesMarker)
}

// HasLinkMetadata reports whether the stored artifact already carries link
// metadata. Idempotence predicate for the metadata backfill.
func (m *Manager) HasLinkMetadata(path string) bool {
	return artifactHasSection(path, linksMarker)
}

func artifactHasSection(path, marker string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), marker)
}
