package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bmexporter/pkg/errors"
	"bmexporter/pkg/logger"
)

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, 5*time.Second, logger.NewNopLogger())
}

func TestFetchBookmarkPage(t *testing.T) {
	var gotReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"posts": [
				{"id": "100", "author_handle": "@alice", "created_at": "2025-04-01T10:00:00Z", "full_text": "first"},
				{"id": "99", "author_handle": "bob", "created_at": "2025-03-30T09:00:00Z", "full_text": "second",
				 "media_entities": [{"media_url": "https://cdn.example.com/a.jpg", "type": "photo"}]}
			],
			"next_cursor": "cursor-2"
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.SetCredentials("tok", "csrf", "test-agent")

	page, err := client.FetchBookmarkPage(context.Background(), "cursor-1")
	require.NoError(t, err)

	require.Len(t, page.Posts, 2)
	assert.Equal(t, "100", page.Posts[0].ID)
	assert.Equal(t, "alice", page.Posts[0].Author, "handle decoration should be stripped")
	assert.Equal(t, "cursor-2", page.NextCursor)
	require.Len(t, page.Posts[1].Media, 1)
	assert.Equal(t, "https://cdn.example.com/a.jpg", page.Posts[1].Media[0].URL)

	require.NotNil(t, gotReq)
	assert.Equal(t, "cursor-1", gotReq.URL.Query().Get("cursor"))
	assert.Equal(t, "csrf", gotReq.Header.Get("x-csrf-token"))
	assert.Contains(t, gotReq.Header.Get("Cookie"), "auth_token=tok")
	assert.Contains(t, gotReq.Header.Get("Cookie"), "ct0=csrf")
	assert.Equal(t, "test-agent", gotReq.Header.Get("User-Agent"))
}

func TestFetchBookmarkPageRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-reset", "1743500000")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchBookmarkPage(context.Background(), "")

	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
	assert.Contains(t, err.Error(), "1743500000")
}

func TestFetchBookmarkPageInBodyRateLimit(t *testing.T) {
	// Some endpoints report a spent budget with code 88 under HTTP 200.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"posts": [], "errors": [{"code": 88, "message": "Rate limit exceeded"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchBookmarkPage(context.Background(), "")

	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
}

func TestFetchBookmarkPageAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchBookmarkPage(context.Background(), "")

	require.Error(t, err)
	assert.Equal(t, errors.KindAuth, errors.KindOf(err))
	assert.False(t, errors.IsRateLimited(err))
}

func TestFetchBookmarkPageServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchBookmarkPage(context.Background(), "")

	require.Error(t, err)
	assert.Equal(t, errors.KindServerError, errors.KindOf(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestFetchBookmarkPageBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchBookmarkPage(context.Background(), "")

	require.Error(t, err)
	assert.Equal(t, errors.KindParsing, errors.KindOf(err))
}

func TestFetchPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("tweet_id"))
		w.Write([]byte(`{
			"post": {
				"id": "42", "author_handle": "alice", "created_at": "2025-04-01T10:00:00Z",
				"full_text": "look at this",
				"quoted_post": {"id": "41", "author_handle": "bob", "created_at": "2025-03-01T10:00:00Z", "full_text": "original"}
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	post, err := client.FetchPost(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", post.ID)
	require.NotNil(t, post.Quoted)
	assert.Equal(t, "41", post.Quoted.ID)
	assert.Equal(t, "bob", post.Quoted.Author)
}

func TestFetchPostNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"post": null}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchPost(context.Background(), "42")

	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestFetchConversation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("focal_tweet_id"))
		w.Write([]byte(`{
			"posts": [
				{"id": "42", "author_handle": "alice", "created_at": "2025-04-01T10:00:00Z", "full_text": "root"},
				{"id": "43", "author_handle": "alice", "created_at": "2025-04-01T10:01:00Z", "full_text": "more", "in_reply_to_id": "42"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	posts, err := client.FetchConversation(context.Background(), "42")
	require.NoError(t, err)

	require.Len(t, posts, 2)
	assert.Equal(t, "42", posts[1].ReplyToID)
}

func TestDownloadMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("binary-image-data"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	data, err := client.DownloadMedia(context.Background(), server.URL+"/media/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("binary-image-data"), data)
}

func TestDownloadMediaRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.DownloadMedia(context.Background(), server.URL+"/media/a.jpg")

	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
}

func TestResolveLink(t *testing.T) {
	t.Run("ExtractsTitle", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html><head><title>\n  An Interesting Article\n</title></head></html>"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		title, err := client.ResolveLink(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "An Interesting Article", title)
	})

	t.Run("NoTitle", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html><body>nothing here</body></html>"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		title, err := client.ResolveLink(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Empty(t, title)
	})

	t.Run("NonOKStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.ResolveLink(context.Background(), server.URL)
		assert.Error(t, err)
	})
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   errors.Kind
	}{
		{"OK", http.StatusOK, ""},
		{"TooManyRequests", http.StatusTooManyRequests, errors.KindRateLimit},
		{"Unauthorized", http.StatusUnauthorized, errors.KindAuth},
		{"Forbidden", http.StatusForbidden, errors.KindAuth},
		{"NotFound", http.StatusNotFound, errors.KindNotFound},
		{"InternalServerError", http.StatusInternalServerError, errors.KindServerError},
		{"BadRequest", http.StatusBadRequest, errors.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(tt.status, http.Header{})
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}
}
