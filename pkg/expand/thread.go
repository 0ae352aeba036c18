package expand

import (
	"context"

	"bmexporter/pkg/errors"
	"bmexporter/pkg/logger"
	"bmexporter/pkg/models"
)

// ConversationFetcher fetches the posts surrounding a post.
type ConversationFetcher interface {
	FetchConversation(ctx context.Context, postID string) ([]models.Post, error)
}

// maxContinuationLength bounds the walk against pathological conversation
// responses that keep yielding new tips.
const maxContinuationLength = 200

// ThreadExpander builds an author's linear reply continuation plus,
// optionally, other users' direct replies.
type ThreadExpander struct {
	client ConversationFetcher
	logger logger.Logger
}

// NewThreadExpander creates a thread expander.
func NewThreadExpander(client ConversationFetcher, log logger.Logger) *ThreadExpander {
	if log == nil {
		log = logger.GetLogger()
	}
	return &ThreadExpander{client: client, logger: log}
}

// Expand walks the conversation from root, following the root author's own
// reply chain one hop at a time. A non-rate-limit error ends the walk with
// the partial result; a rate-limit error propagates immediately so the
// orchestrator can checkpoint.
func (e *ThreadExpander) Expand(ctx context.Context, root *models.Post, includeReplies bool) (*models.ExpandedThread, error) {
	thread := &models.ExpandedThread{}

	var candidates []models.Post
	seen := map[string]bool{root.ID: true}
	tip := root

	for len(thread.Continuation) < maxContinuationLength {
		posts, err := e.client.FetchConversation(ctx, tip.ID)
		if err != nil {
			if errors.IsRateLimited(err) {
				return thread, err
			}
			e.logger.WarnWithFields("conversation fetch failed, keeping partial thread", map[string]interface{}{
				"post_id":           tip.ID,
				"continuation_size": len(thread.Continuation),
				"error":             err.Error(),
			})
			break
		}

		// Only the first response contributes reply candidates; later
		// calls revolve around continuation tips whose replies answer
		// the chain, not the root.
		if includeReplies && candidates == nil {
			candidates = make([]models.Post, 0, len(posts))
			candidateIDs := map[string]bool{}
			for _, p := range posts {
				if p.ID == root.ID || candidateIDs[p.ID] {
					continue
				}
				candidateIDs[p.ID] = true
				candidates = append(candidates, p)
			}
		}

		next := findContinuation(posts, root.Author, tip.ID, seen)
		if next == nil {
			break
		}

		seen[next.ID] = true
		thread.Continuation = append(thread.Continuation, *next)
		tip = next
	}

	if includeReplies {
		thread.Replies = filterReplies(candidates, root, thread.Continuation)
	}

	return thread, nil
}

// findContinuation picks the author's own reply to the current tip.
func findContinuation(posts []models.Post, author, tipID string, seen map[string]bool) *models.Post {
	for i := range posts {
		p := &posts[i]
		if p.Author == author && p.ReplyToID == tipID && !seen[p.ID] {
			return p
		}
	}
	return nil
}

// filterReplies keeps candidates that directly answer the root or a
// continuation member and were written by someone else. This drops
// ancestors the API returns alongside the conversation and any
// self-continuation the walk did not detect.
func filterReplies(candidates []models.Post, root *models.Post, continuation []models.Post) []models.Post {
	inScope := map[string]bool{root.ID: true}
	member := map[string]bool{}
	for _, p := range continuation {
		inScope[p.ID] = true
		member[p.ID] = true
	}

	var replies []models.Post
	for _, p := range candidates {
		if member[p.ID] {
			continue
		}
		if !inScope[p.ReplyToID] {
			continue
		}
		if p.Author == root.Author {
			continue
		}
		replies = append(replies, p)
	}
	return replies
}
