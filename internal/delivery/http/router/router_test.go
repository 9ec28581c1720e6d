package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/adapter/memory"
	"github.com/user/follower-tracker/internal/delivery/http/handler"
	"github.com/user/follower-tracker/internal/delivery/http/response"
	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/extract"
	"github.com/user/follower-tracker/internal/repository"
	"github.com/user/follower-tracker/internal/usecase"
	"github.com/user/follower-tracker/pkg/metrics"
)

const profilePage = `<html><head>
<meta property="og:description" content="557 Followers, 513 Following, 3 Posts - See Instagram photos and videos">
</head></html>`

type pageStub struct {
	content string
}

func (p pageStub) Fetch(context.Context, string) (string, error) {
	return p.content, nil
}

func newTestServer(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := zap.NewNop()

	store := usecase.NewResilientStore(memory.NewStore(repository.DefaultRetention), "memory", logger, m)
	fetcher := usecase.NewSnapshotFetcher(pageStub{content: profilePage}, store, extract.DefaultChain(),
		extract.Baseline{Followers: 547, Following: 513}, logger, m)
	orch := usecase.NewOrchestrator(fetcher, store, usecase.NewDiffEngine(),
		usecase.OrchestratorOptions{Identity: "someone", FetchTimeout: time.Second}, logger, m)

	h := handler.NewHandler(orch, store, 5*time.Minute, logger)
	return New(h, m, reg, logger), reg
}

func TestRouterStatsAndRefresh(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats entity.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats.History, 1)
	assert.Equal(t, int64(557), stats.History[0].Followers)
	assert.Equal(t, entity.StatusLive, stats.History[0].Status)
	assert.Equal(t, "someone", stats.History[0].Username)
	assert.Empty(t, stats.Events)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed response.RefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.Equal(t, int64(557), refreshed.Latest.Followers)
	assert.NotNil(t, refreshed.Events)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	srv, reg := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","store":"available","backend":"memory"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))

	n, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}

func TestRouterUnknownRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/refresh", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
