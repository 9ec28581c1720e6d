package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/proxy"
	"github.com/user/follower-tracker/internal/repository"
)

func newTestFetcher(srv *httptest.Server, opts Options) *Fetcher {
	opts.URLTemplate = srv.URL + "/%s/"
	return NewFetcher(opts, proxy.NewManager(nil, []string{"test-agent"}), zap.NewNop())
}

func TestFetcher_Success(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(srv, Options{})
	body, err := f.Fetch(context.Background(), "_someone_")
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
	assert.Equal(t, "/_someone_/", gotPath)
	assert.Equal(t, "test-agent", gotUA)
}

func TestFetcher_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := newTestFetcher(srv, Options{})
	_, err := f.Fetch(context.Background(), "someone")
	require.Error(t, err)

	var fe *repository.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusTooManyRequests, fe.StatusCode)
	assert.Contains(t, err.Error(), "likely rate-limited")
}

func TestFetcher_LoginRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/someone/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/accounts/login/", http.StatusFound)
	})
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<form id=loginForm></form>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(srv, Options{})
	_, err := f.Fetch(context.Background(), "someone")
	assert.ErrorIs(t, err, repository.ErrRateLimited)
}

func TestFetcher_MinInterval(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(srv, Options{MinInterval: time.Hour})
	_, err := f.Fetch(context.Background(), "someone")
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "someone")
	assert.ErrorIs(t, err, repository.ErrThrottled)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcher_CircuitOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(srv, Options{BreakerFailureThreshold: 2, BreakerDelay: time.Hour})
	ctx := context.Background()

	_, err := f.Fetch(ctx, "someone")
	require.Error(t, err)
	_, err = f.Fetch(ctx, "someone")
	require.Error(t, err)

	_, err = f.Fetch(ctx, "someone")
	assert.ErrorIs(t, err, repository.ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}
