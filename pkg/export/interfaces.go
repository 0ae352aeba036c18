package export

import (
	"context"

	"bmexporter/pkg/models"
)

// Client is the platform collaborator the orchestrator drives. Every
// method classifies rate-limit failures so the orchestrator can
// distinguish a run-level pause from an ordinary per-post error.
type Client interface {
	// FetchBookmarkPage fetches one page of the bookmark timeline.
	FetchBookmarkPage(ctx context.Context, cursor string) (*models.BookmarkPage, error)

	// FetchConversation fetches the posts surrounding a post.
	FetchConversation(ctx context.Context, postID string) ([]models.Post, error)

	// FetchPost fetches a single post in full.
	FetchPost(ctx context.Context, postID string) (*models.Post, error)

	// DownloadMedia fetches a media file by URL.
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}

// MetadataFetcher resolves a URL to its link metadata. The network side of
// enrichment lives outside the pipeline; the orchestrator only owns the
// caching policy around it.
type MetadataFetcher func(ctx context.Context, url string) (string, error)
