package models

import "time"

// Post is a single bookmarked post as returned by the platform client.
type Post struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
	ReplyToID string    `json:"reply_to_id,omitempty"`
	Quoted    *Post     `json:"quoted,omitempty"`
	Media     []Media   `json:"media,omitempty"`
}

// Media is a single media attachment on a post.
type Media struct {
	URL  string `json:"url"`
	Type string `json:"type"` // photo, video, gif
}

// HasQuote reports whether the post embeds a quoted post.
func (p *Post) HasQuote() bool {
	return p != nil && p.Quoted != nil && p.Quoted.ID != ""
}

// QuoteDepth returns the number of nested quote levels below this post.
func (p *Post) QuoteDepth() int {
	depth := 0
	for q := p.Quoted; q != nil; q = q.Quoted {
		depth++
	}
	return depth
}

// ExpandedThread is the conversational context built around one bookmarked
// post: the author's own linear continuation plus direct replies from others.
type ExpandedThread struct {
	Continuation []Post `json:"continuation"`
	Replies      []Post `json:"replies"`
}

// BookmarkPage is one page of the paginated bookmark timeline.
type BookmarkPage struct {
	Posts      []Post `json:"posts"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// ExportError is one durable entry in the append-only error log.
type ExportError struct {
	PostID    string    `json:"post_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Context   string    `json:"context,omitempty"`
}
