package twitter

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the base URL for the platform API.
	DefaultBaseURL = "https://x.com/i/api"

	// BookmarksEndpoint serves the paginated bookmark timeline.
	BookmarksEndpoint = "/graphql/Bookmarks"

	// ConversationEndpoint serves the conversation around a post.
	ConversationEndpoint = "/graphql/TweetDetail"

	// PostEndpoint serves a single post by id.
	PostEndpoint = "/graphql/TweetResultByRestId"

	// DefaultPageSize is the number of bookmarks requested per page.
	DefaultPageSize = 20

	// MaxPageSize is the largest page the API accepts.
	MaxPageSize = 100
)

// BookmarksURL constructs the URL for one page of bookmarks.
func BookmarksURL(baseURL, cursor string, count int) string {
	if count <= 0 {
		count = DefaultPageSize
	} else if count > MaxPageSize {
		count = MaxPageSize
	}

	params := url.Values{}
	params.Set("count", fmt.Sprintf("%d", count))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	return fmt.Sprintf("%s%s?%s", baseURL, BookmarksEndpoint, params.Encode())
}

// ConversationURL constructs the URL for the conversation around a post.
func ConversationURL(baseURL, postID string) string {
	params := url.Values{}
	params.Set("focal_tweet_id", postID)

	return fmt.Sprintf("%s%s?%s", baseURL, ConversationEndpoint, params.Encode())
}

// PostURL constructs the URL for fetching a single post.
func PostURL(baseURL, postID string) string {
	params := url.Values{}
	params.Set("tweet_id", postID)

	return fmt.Sprintf("%s%s?%s", baseURL, PostEndpoint, params.Encode())
}

// IsValidPostID checks whether an id looks like a platform post id.
func IsValidPostID(id string) bool {
	if id == "" || len(id) > 30 {
		return false
	}
	for _, char := range id {
		if char < '0' || char > '9' {
			return false
		}
	}
	return true
}

// SanitizeHandle strips decoration from a user handle.
func SanitizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return strings.TrimSuffix(handle, "/")
}
