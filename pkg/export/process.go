package export

import (
	"context"
	"regexp"

	"bmexporter/pkg/errors"
	"bmexporter/pkg/expand"
	"bmexporter/pkg/models"
	"bmexporter/pkg/storage"
)

var urlPattern = regexp.MustCompile(`https?://[^\s)>\]]+`)

// processPost runs the full pipeline for one post: thread expansion,
// quote expansion, link enrichment, media download, artifact write.
// Rate-limit errors propagate untouched; everything else fails only this
// post.
func (e *Exporter) processPost(ctx context.Context, post *models.Post) error {
	thread, err := e.threads.Expand(ctx, post, e.cfg.Export.IncludeReplies)
	if err != nil {
		// Only rate limits escape the thread expander.
		return err
	}

	if _, err := e.quotes.Expand(ctx, post, expand.NormalizeDepth(e.cfg.Export.QuoteDepth)); err != nil {
		return err
	}

	links := e.enrichLinks(ctx, post, thread)

	var mediaFiles []string
	if e.cfg.Download.Enabled {
		mediaFiles, err = e.downloadMedia(ctx, post)
		if err != nil {
			return err
		}
	}

	if _, err := e.store.WriteArchive(&storage.Archive{
		Post:       *post,
		Thread:     thread,
		LinkTitles: links,
		MediaFiles: mediaFiles,
	}); err != nil {
		return err
	}

	e.logger.DebugWithFields("Post exported", map[string]interface{}{
		"post_id":      post.ID,
		"continuation": len(thread.Continuation),
		"replies":      len(thread.Replies),
		"quote_depth":  post.QuoteDepth(),
		"media":        len(mediaFiles),
	})

	return nil
}

// enrichLinks resolves link metadata for every URL in the post and its
// continuation, going through the TTL cache so repeated runs spend no
// network calls on known URLs. Enrichment is best-effort.
func (e *Exporter) enrichLinks(ctx context.Context, post *models.Post, thread *models.ExpandedThread) map[string]string {
	if e.metaFetcher == nil {
		return nil
	}

	texts := []string{post.Text}
	if thread != nil {
		for _, p := range thread.Continuation {
			texts = append(texts, p.Text)
		}
	}

	titles := make(map[string]string)
	for _, text := range texts {
		for _, url := range urlPattern.FindAllString(text, -1) {
			if _, ok := titles[url]; ok {
				continue
			}
			title, err := e.cache.GetOrFetch(url, func(u string) (string, error) {
				return e.metaFetcher(ctx, u)
			})
			if err != nil {
				e.logger.WarnWithFields("link enrichment failed", map[string]interface{}{
					"url":   url,
					"error": err.Error(),
				})
				continue
			}
			if title != "" {
				titles[url] = title
			}
		}
	}

	if len(titles) == 0 {
		return nil
	}
	return titles
}

// downloadMedia fetches the post's attachments through the worker pool.
// A rate-limited download propagates; other failures drop only the
// affected attachment.
func (e *Exporter) downloadMedia(ctx context.Context, post *models.Post) ([]string, error) {
	if len(post.Media) == 0 {
		return nil, nil
	}

	var files []string
	for _, res := range e.pool.DownloadAll(ctx, post) {
		if res.Err != nil {
			if errors.IsRateLimited(res.Err) {
				return nil, res.Err
			}
			continue
		}
		files = append(files, res.Filename)
	}
	return files, nil
}
