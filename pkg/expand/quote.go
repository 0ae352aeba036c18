package expand

import (
	"context"

	"bmexporter/pkg/errors"
	"bmexporter/pkg/logger"
	"bmexporter/pkg/models"
)

// MaxQuoteDepth is the hard ceiling on recursive quote expansion.
// "Unlimited" depth requests clamp to it.
const MaxQuoteDepth = 20

// PostFetcher fetches a single post by id.
type PostFetcher interface {
	FetchPost(ctx context.Context, postID string) (*models.Post, error)
}

// QuoteExpander recursively resolves nested quoted posts. Embedded quote
// summaries are often truncated, so each level is re-fetched in full.
type QuoteExpander struct {
	client PostFetcher
	logger logger.Logger
}

// NewQuoteExpander creates a quote expander.
func NewQuoteExpander(client PostFetcher, log logger.Logger) *QuoteExpander {
	if log == nil {
		log = logger.GetLogger()
	}
	return &QuoteExpander{client: client, logger: log}
}

// NormalizeDepth clamps a configured depth to the hard ceiling. Zero and
// negative values mean unlimited.
func NormalizeDepth(depth int) int {
	if depth <= 0 || depth > MaxQuoteDepth {
		return MaxQuoteDepth
	}
	return depth
}

// Expand resolves the post's quote chain up to remaining levels. The depth
// strictly decreases on each recursive call; the walk stops at depth zero
// or the first absent quote.
//
// A non-rate-limit fetch failure keeps the embedded reference as-is;
// expansion is best-effort and never fails the post. A rate-limit error
// propagates with the partially expanded post.
func (e *QuoteExpander) Expand(ctx context.Context, post *models.Post, remaining int) (*models.Post, error) {
	if remaining <= 0 || !post.HasQuote() {
		return post, nil
	}

	full, err := e.client.FetchPost(ctx, post.Quoted.ID)
	if err != nil {
		if errors.IsRateLimited(err) {
			return post, err
		}
		e.logger.WarnWithFields("quoted post fetch failed, keeping embedded reference", map[string]interface{}{
			"post_id":   post.ID,
			"quoted_id": post.Quoted.ID,
			"error":     err.Error(),
		})
		return post, nil
	}

	expanded, err := e.Expand(ctx, full, remaining-1)
	post.Quoted = expanded
	if err != nil {
		// Rate limited deeper in the chain; attach what was resolved
		// and let the caller checkpoint.
		return post, err
	}

	return post, nil
}
