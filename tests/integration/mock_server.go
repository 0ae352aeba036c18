package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// wirePost mirrors the API's post representation.
type wirePost struct {
	ID            string      `json:"id"`
	AuthorHandle  string      `json:"author_handle"`
	CreatedAt     time.Time   `json:"created_at"`
	FullText      string      `json:"full_text"`
	InReplyToID   string      `json:"in_reply_to_id,omitempty"`
	QuotedPost    *wirePost   `json:"quoted_post,omitempty"`
	MediaEntities []wireMedia `json:"media_entities,omitempty"`
}

type wireMedia struct {
	MediaURL string `json:"media_url"`
	Type     string `json:"type"`
}

type wirePage struct {
	Posts      []wirePost `json:"posts"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// MockPlatformServer simulates the platform API: the bookmark timeline,
// conversation and single-post endpoints, and a CDN path for media. Rate
// limiting can be switched on to exercise the checkpoint-and-stop path.
type MockPlatformServer struct {
	server *httptest.Server

	mu            sync.RWMutex
	pages         map[string]wirePage   // cursor -> page, "" is the head
	conversations map[string][]wirePost // focal post id -> surrounding posts
	posts         map[string]wirePost   // post id -> full post
	media         map[string][]byte     // path suffix -> bytes
	rateLimited   bool
	limitAfter    int32 // 429 every API request past this count, 0 disables

	requestCount  int32
	rateLimitHits int32
}

// NewMockPlatformServer creates a mock API server with empty fixtures.
func NewMockPlatformServer() *MockPlatformServer {
	m := &MockPlatformServer{
		pages:         make(map[string]wirePage),
		conversations: make(map[string][]wirePost),
		posts:         make(map[string]wirePost),
		media:         make(map[string][]byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/graphql/Bookmarks", m.handleBookmarks)
	mux.HandleFunc("/graphql/TweetDetail", m.handleConversation)
	mux.HandleFunc("/graphql/TweetResultByRestId", m.handlePost)
	mux.HandleFunc("/media/", m.handleMedia)

	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the base URL of the mock server.
func (m *MockPlatformServer) URL() string {
	return m.server.URL
}

// Close shuts down the server.
func (m *MockPlatformServer) Close() {
	m.server.Close()
}

// AddPage registers a bookmark page under the given cursor. The head of
// the timeline uses the empty cursor.
func (m *MockPlatformServer) AddPage(cursor string, page wirePage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[cursor] = page
}

// AddConversation registers the conversation surrounding a post.
func (m *MockPlatformServer) AddConversation(postID string, posts []wirePost) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[postID] = posts
}

// AddPost registers a full post for the single-post endpoint.
func (m *MockPlatformServer) AddPost(post wirePost) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.ID] = post
}

// AddMedia registers media bytes under a CDN path suffix.
func (m *MockPlatformServer) AddMedia(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media[name] = data
}

// MediaURL returns the CDN URL for a registered media name.
func (m *MockPlatformServer) MediaURL(name string) string {
	return m.server.URL + "/media/" + name
}

// SetRateLimited switches the 429 response on or off for the API
// endpoints. Media downloads are limited too.
func (m *MockPlatformServer) SetRateLimited(limited bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited = limited
}

// SetRateLimitAfter makes every API request past the n-th return 429,
// simulating a budget that runs out mid-export. 0 disables the trigger.
func (m *MockPlatformServer) SetRateLimitAfter(n int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limitAfter = n
}

// RequestCount returns the number of API requests served.
func (m *MockPlatformServer) RequestCount() int32 {
	return atomic.LoadInt32(&m.requestCount)
}

// RateLimitHits returns the number of 429 responses served.
func (m *MockPlatformServer) RateLimitHits() int32 {
	return atomic.LoadInt32(&m.rateLimitHits)
}

// ResetCounters zeroes the request counters.
func (m *MockPlatformServer) ResetCounters() {
	atomic.StoreInt32(&m.requestCount, 0)
	atomic.StoreInt32(&m.rateLimitHits, 0)
}

func (m *MockPlatformServer) limited(w http.ResponseWriter) bool {
	m.mu.RLock()
	limited := m.rateLimited
	limitAfter := m.limitAfter
	m.mu.RUnlock()

	if !limited && limitAfter > 0 && atomic.LoadInt32(&m.requestCount) > limitAfter {
		limited = true
	}

	if limited {
		atomic.AddInt32(&m.rateLimitHits, 1)
		w.Header().Set("x-rate-limit-reset", "9999999999")
		w.WriteHeader(http.StatusTooManyRequests)
		return true
	}
	return false
}

func (m *MockPlatformServer) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)
	if m.limited(w) {
		return
	}

	cursor := r.URL.Query().Get("cursor")
	m.mu.RLock()
	page, ok := m.pages[cursor]
	m.mu.RUnlock()

	if !ok {
		page = wirePage{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

func (m *MockPlatformServer) handleConversation(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)
	if m.limited(w) {
		return
	}

	postID := r.URL.Query().Get("focal_tweet_id")
	m.mu.RLock()
	posts := m.conversations[postID]
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"posts": posts})
}

func (m *MockPlatformServer) handlePost(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)
	if m.limited(w) {
		return
	}

	postID := r.URL.Query().Get("tweet_id")
	m.mu.RLock()
	post, ok := m.posts[postID]
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		json.NewEncoder(w).Encode(map[string]interface{}{"post": nil})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"post": post})
}

func (m *MockPlatformServer) handleMedia(w http.ResponseWriter, r *http.Request) {
	if m.limited(w) {
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/media/")
	m.mu.RLock()
	data, ok := m.media[name]
	m.mu.RUnlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Write(data)
}
