package twitter

import (
	"time"

	"bmexporter/pkg/models"
)

// apiPost is the wire representation of a post.
type apiPost struct {
	ID            string     `json:"id"`
	AuthorHandle  string     `json:"author_handle"`
	CreatedAt     time.Time  `json:"created_at"`
	FullText      string     `json:"full_text"`
	InReplyToID   string     `json:"in_reply_to_id,omitempty"`
	QuotedPost    *apiPost   `json:"quoted_post,omitempty"`
	MediaEntities []apiMedia `json:"media_entities,omitempty"`
}

type apiMedia struct {
	MediaURL string `json:"media_url"`
	Type     string `json:"type"`
}

// apiError mirrors the error objects embedded in API response bodies.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// bookmarksResponse is the envelope for one bookmark timeline page.
type bookmarksResponse struct {
	Posts      []apiPost  `json:"posts"`
	NextCursor string     `json:"next_cursor,omitempty"`
	Errors     []apiError `json:"errors,omitempty"`
}

// conversationResponse is the envelope for a conversation query.
type conversationResponse struct {
	Posts  []apiPost  `json:"posts"`
	Errors []apiError `json:"errors,omitempty"`
}

// postResponse is the envelope for a single-post query.
type postResponse struct {
	Post   *apiPost   `json:"post,omitempty"`
	Errors []apiError `json:"errors,omitempty"`
}

// rateLimitExceededCode is the in-body API error code for a spent rate
// budget, returned even under HTTP 200 by some endpoints.
const rateLimitExceededCode = 88

func (p *apiPost) toModel() models.Post {
	post := models.Post{
		ID:        p.ID,
		Author:    SanitizeHandle(p.AuthorHandle),
		CreatedAt: p.CreatedAt,
		Text:      p.FullText,
		ReplyToID: p.InReplyToID,
	}
	if p.QuotedPost != nil {
		quoted := p.QuotedPost.toModel()
		post.Quoted = &quoted
	}
	for _, m := range p.MediaEntities {
		post.Media = append(post.Media, models.Media{URL: m.MediaURL, Type: m.Type})
	}
	return post
}

func toModelPosts(api []apiPost) []models.Post {
	posts := make([]models.Post, 0, len(api))
	for i := range api {
		posts = append(posts, api[i].toModel())
	}
	return posts
}
