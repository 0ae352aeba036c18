package export

import (
	"context"

	"bmexporter/pkg/errors"
)

// RunOne exports a single post by id, bypassing the page loop entirely.
// This is the manual follow-up path for entries in the error log. With
// force set, an existing artifact is rewritten.
func (e *Exporter) RunOne(ctx context.Context, postID string, force bool) (*Result, error) {
	result := &Result{}

	post, err := e.client.FetchPost(ctx, postID)
	if err != nil {
		if errors.IsRateLimited(err) {
			result.RateLimited = true
			return result, nil
		}
		return result, err
	}

	if !force && e.store.Exists(post.ID, post.CreatedAt) {
		result.Skipped++
		return result, nil
	}

	if err := e.processPost(ctx, post); err != nil {
		if errors.IsRateLimited(err) {
			result.RateLimited = true
			return result, nil
		}
		return result, err
	}

	result.Exported++
	return result, nil
}
