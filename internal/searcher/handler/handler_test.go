package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/redis"
)

type memoryBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryBackend) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (m *memoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value)
	return nil
}

func (m *memoryBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func newEngine(t *testing.T) *executor.Engine {
	t.Helper()
	corpus := t.TempDir()
	for name, body := range map[string]string{"1": "the cat sat", "2": "the cat ran", "3": "dogs bark"} {
		require.NoError(t, os.WriteFile(filepath.Join(corpus, name), []byte(body), 0o644))
	}
	out := t.TempDir()
	idx := config.IndexConfig{
		DocumentsDir:   corpus,
		DictionaryFile: filepath.Join(out, "dictionary.txt"),
		PostingsFile:   filepath.Join(out, "postings.txt"),
		DocLengthsFile: filepath.Join(out, "doc_lengths.txt"),
	}
	_, err := indexer.NewBuilder(idx, config.AnalysisConfig{}).Build(context.Background())
	require.NoError(t, err)
	e, err := executor.Open(idx, config.AnalysisConfig{}, config.SearchConfig{TopK: 10})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Routes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) *executor.SearchResult {
	t.Helper()
	result := &executor.SearchResult{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(result))
	return result
}

func TestSearch(t *testing.T) {
	h := New(newEngine(t), nil, nil, nil, 10, 50)

	rec := serve(h, http.MethodGet, "/api/v1/search?q=cats")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode(t, rec)
	assert.Equal(t, "cats", result.Query)
	assert.Equal(t, "1 2", result.DocIDs())
	assert.Equal(t, map[string]int{"cat": 2}, result.Terms)

	rec = serve(h, http.MethodGet, "/api/v1/search?q=cat&limit=1")
	assert.Equal(t, "1", decode(t, rec).DocIDs())
}

func TestSearchNoTerms(t *testing.T) {
	h := New(newEngine(t), nil, nil, nil, 10, 50)
	rec := serve(h, http.MethodGet, "/api/v1/search?q=%21%21")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"!!","total_hits":0,"results":[],"terms":{}}`, rec.Body.String())
}

func TestSearchBadRequests(t *testing.T) {
	h := New(newEngine(t), nil, nil, nil, 10, 50)
	for _, target := range []string{
		"/api/v1/search",
		"/api/v1/search?q=cat&limit=0",
		"/api/v1/search?q=cat&limit=ten",
	} {
		rec := serve(h, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	rec := serve(h, http.MethodPost, "/api/v1/search?q=cat")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSearchUsesCacheAndTracks(t *testing.T) {
	m := metrics.New()
	backend := &memoryBackend{data: map[string]string{}}
	qc := cache.New(backend, time.Minute, m)
	agg := analytics.NewAggregator()
	h := New(newEngine(t), qc, analytics.NewCollector(nil, agg, 0, 0), m, 10, 50)

	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v1/search?q=cat").Code)
	rec := serve(h, http.MethodGet, "/api/v1/search?q=cats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cats", decode(t, rec).Query)
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v1/search?q=xyz").Code)

	stats := agg.Stats()
	assert.Equal(t, int64(3), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, 2, testutil.CollectAndCount(m.SearchLatency))

	rec = serve(h, http.MethodGet, "/api/v1/cache/stats")
	assert.JSONEq(t, `{"hits":1,"misses":2,"total":3,"hit_rate":"33.3%"}`, rec.Body.String())

	rec = serve(h, http.MethodPost, "/api/v1/cache/invalidate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"invalidated","keys_deleted":2}`, rec.Body.String())
	assert.Empty(t, backend.data)
}

func TestCacheDisabled(t *testing.T) {
	h := New(newEngine(t), nil, nil, nil, 10, 50)
	assert.JSONEq(t, `{"status":"disabled"}`, serve(h, http.MethodGet, "/api/v1/cache/stats").Body.String())
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, http.MethodPost, "/api/v1/cache/invalidate").Code)
}

func TestLimitClamp(t *testing.T) {
	h := New(nil, nil, nil, nil, 10, 20)
	n, err := h.parseLimit("500")
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	n, err = h.parseLimit("")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}
