package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"bmexporter/pkg/errors"
	"bmexporter/pkg/logger"
	"bmexporter/pkg/models"
)

// Client talks to the platform API. It is the external collaborator the
// export pipeline depends on; every method classifies failures so the
// orchestrator can distinguish a rate-limit pause from an ordinary error.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	pageSize   int
	logger     logger.Logger
}

// NewClient creates a new platform API client.
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept":          "application/json",
			"Accept-Language": "en-US,en;q=0.9",
		},
		baseURL:  baseURL,
		pageSize: DefaultPageSize,
		logger:   log,
	}
}

// SetHeader sets a custom header for all requests.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetCredentials installs the auth cookie, CSRF header, and user agent.
func (c *Client) SetCredentials(authToken, csrfToken, userAgent string) {
	var cookies []string
	if authToken != "" {
		cookies = append(cookies, fmt.Sprintf("auth_token=%s", authToken))
	}
	if csrfToken != "" {
		cookies = append(cookies, fmt.Sprintf("ct0=%s", csrfToken))
		c.headers["x-csrf-token"] = csrfToken
	}
	if len(cookies) > 0 {
		c.headers["Cookie"] = strings.Join(cookies, "; ")
	}
	if userAgent != "" {
		c.headers["User-Agent"] = userAgent
	}
}

// SetPageSize overrides the number of bookmarks fetched per page.
func (c *Client) SetPageSize(n int) {
	if n > 0 {
		c.pageSize = n
	}
}

// FetchBookmarkPage fetches one page of the bookmark timeline. An empty
// cursor requests the first page.
func (c *Client) FetchBookmarkPage(ctx context.Context, cursor string) (*models.BookmarkPage, error) {
	url := BookmarksURL(c.baseURL, cursor, c.pageSize)

	var resp bookmarksResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if err := checkAPIErrors(resp.Errors); err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("bookmark page fetched", map[string]interface{}{
		"cursor":      cursor,
		"post_count":  len(resp.Posts),
		"next_cursor": resp.NextCursor,
	})

	return &models.BookmarkPage{
		Posts:      toModelPosts(resp.Posts),
		NextCursor: resp.NextCursor,
	}, nil
}

// FetchConversation fetches the posts surrounding postID.
func (c *Client) FetchConversation(ctx context.Context, postID string) ([]models.Post, error) {
	url := ConversationURL(c.baseURL, postID)

	var resp conversationResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if err := checkAPIErrors(resp.Errors); err != nil {
		return nil, err
	}

	return toModelPosts(resp.Posts), nil
}

// FetchPost fetches a single post by id. Embedded quote summaries on
// bookmark pages are often truncated; this returns the full post.
func (c *Client) FetchPost(ctx context.Context, postID string) (*models.Post, error) {
	url := PostURL(c.baseURL, postID)

	var resp postResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if err := checkAPIErrors(resp.Errors); err != nil {
		return nil, err
	}
	if resp.Post == nil {
		return nil, errors.New(errors.KindNotFound, http.StatusNotFound, "post %s not found", postID)
	}

	post := resp.Post.toModel()
	return &post, nil
}

// DownloadMedia fetches a media file from its CDN URL.
func (c *Client) DownloadMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New(errors.KindUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", c.headers["User-Agent"])
	req.Header.Set("Accept", "image/webp,video/mp4,*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(errors.KindNetwork, 0, "media download failed: %v", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, resp.Header); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.KindNetwork, resp.StatusCode, "failed to read media body: %v", err)
	}
	return data, nil
}

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// ResolveLink fetches a page and returns its title, used for link-metadata
// enrichment. Callers cache the result; this is deliberately minimal.
func (c *Client) ResolveLink(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.New(errors.KindUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", c.headers["User-Agent"])

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.New(errors.KindNetwork, 0, "link fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.KindUnknown, resp.StatusCode, "link fetch returned status %d", resp.StatusCode)
	}

	// Titles live in the first few KB; don't read whole pages.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", errors.New(errors.KindNetwork, resp.StatusCode, "failed to read link body: %v", err)
	}

	if m := titlePattern.FindSubmatch(body); m != nil {
		return strings.TrimSpace(string(m[1])), nil
	}
	return "", nil
}

// getJSON performs a GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.New(errors.KindUnknown, 0, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return errors.New(errors.KindNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if err := classifyStatus(resp.StatusCode, resp.Header); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.KindNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"body_preview": preview,
		})
		return errors.New(errors.KindParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	return nil
}

// classifyStatus maps HTTP status codes to classified errors. 429 becomes
// the structured rate-limit error the orchestrator checkpoints on.
func classifyStatus(statusCode int, header http.Header) error {
	switch {
	case statusCode == http.StatusOK:
		return nil
	case statusCode == http.StatusTooManyRequests:
		msg := "rate limit exceeded"
		if reset := header.Get("x-rate-limit-reset"); reset != "" {
			msg = fmt.Sprintf("rate limit exceeded, resets at %s", reset)
		}
		return errors.New(errors.KindRateLimit, statusCode, "%s", msg)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return errors.New(errors.KindAuth, statusCode, "authentication required")
	case statusCode == http.StatusNotFound:
		return errors.New(errors.KindNotFound, statusCode, "resource not found")
	case statusCode >= 500:
		return errors.New(errors.KindServerError, statusCode, "server error")
	case statusCode >= 400:
		return errors.New(errors.KindUnknown, statusCode, "unexpected status code: %d", statusCode)
	default:
		return nil
	}
}

// checkAPIErrors surfaces in-body API errors, mapping the rate-limit code
// to the structured classification.
func checkAPIErrors(apiErrors []apiError) error {
	for _, e := range apiErrors {
		if e.Code == rateLimitExceededCode {
			return errors.New(errors.KindRateLimit, http.StatusTooManyRequests, "%s", e.Message)
		}
	}
	if len(apiErrors) > 0 {
		return errors.New(errors.KindUnknown, 0, "api error %d: %s", apiErrors[0].Code, apiErrors[0].Message)
	}
	return nil
}
