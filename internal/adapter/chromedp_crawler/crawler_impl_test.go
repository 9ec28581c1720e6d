package chromedp_crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/repository"
)

func newTestFetcher(t *testing.T, srv *httptest.Server) *ChromedpFetcher {
	t.Helper()
	f, err := NewChromedpFetcher(srv.URL+"/%s/", 20*time.Second, nil, zap.NewNop())
	if err != nil {
		t.Skipf("headless browser not available: %v", err)
	}
	t.Cleanup(f.Close)
	return f
}

func TestChromedpFetcherRendersPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><meta property="og:description" content="10 Followers, 2 Following, 1 Posts"></head><body>ok</body></html>`))
	}))
	defer srv.Close()

	html, err := newTestFetcher(t, srv).Fetch(context.Background(), "someone")
	require.NoError(t, err)
	assert.Contains(t, html, "10 Followers, 2 Following, 1 Posts")
}

func TestChromedpFetcherLoginRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/accounts/login/" {
			w.Write([]byte(`<html><body>log in</body></html>`))
			return
		}
		http.Redirect(w, r, "/accounts/login/", http.StatusFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, srv).Fetch(context.Background(), "someone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrRateLimited))
}
