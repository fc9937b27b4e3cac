package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/resilience"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestClassify(t *testing.T) {
	assert.Equal(t, EventZeroResult, Classify(0, true))
	assert.Equal(t, EventCacheHit, Classify(3, true))
	assert.Equal(t, EventSearch, Classify(3, false))
}

func TestAggregatorStats(t *testing.T) {
	a := NewAggregator()
	a.Record(SearchEvent{Query: "cat", Terms: []string{"cat"}, TotalHits: 2, LatencyMs: 4})
	a.Record(SearchEvent{Query: "cat", Terms: []string{"cat"}, TotalHits: 2, LatencyMs: 1, CacheHit: true})
	a.Record(SearchEvent{Query: "xyz", Terms: []string{"xyz"}, TotalHits: 0, LatencyMs: 2})

	stats := a.Stats()
	assert.Equal(t, int64(3), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.InDelta(t, 7.0/3, stats.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(2), stats.P50LatencyMs)
	assert.Equal(t, []QueryCount{{"cat", 2}, {"xyz", 1}}, stats.TopQueries)
	assert.Equal(t, []QueryCount{{"xyz", 1}}, stats.ZeroResultQueries)
}

func TestAggregatorLatencyRing(t *testing.T) {
	a := NewAggregator()
	for i := 0; i < maxLatencySamples+5; i++ {
		a.Record(SearchEvent{Query: "q", LatencyMs: 1})
	}
	assert.Len(t, a.latencies, maxLatencySamples)
	assert.Equal(t, 5, a.next)
}

func TestCollectorWithoutPublisherOnlyAggregates(t *testing.T) {
	agg := NewAggregator()
	c := NewCollector(nil, agg, 10, time.Hour)
	c.Track(SearchEvent{Query: "cat", TotalHits: 1})
	assert.Equal(t, int64(1), agg.Stats().TotalSearches)
	assert.Zero(t, c.Buffered())
	c.Close()
}

func TestCollectorFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, NewAggregator(), 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	c.Track(SearchEvent{Type: EventSearch, Query: "cat"})
	c.Track(SearchEvent{Type: EventZeroResult, Query: "xyz"})
	assert.Equal(t, 2, c.Buffered())

	cancel()
	c.Close()
	assert.Equal(t, 2, pub.count())
	assert.Equal(t, "zero_result", pub.batches[0][1].Key)
}

func TestCollectorRequeuesOnFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, nil, 2, time.Hour)
	c.Track(SearchEvent{Query: "a"})
	c.Flush(context.Background())
	assert.Equal(t, 1, c.Buffered())

	pub.err = nil
	c.Flush(context.Background())
	assert.Zero(t, c.Buffered())
	assert.Equal(t, 1, pub.count())
}

func TestBuildRecorder(t *testing.T) {
	pub := &fakePublisher{}
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := NewBuildRecorder(pub).RecordBuild(context.Background(), &indexer.BuildResult{
		TraceID:        "abc",
		Documents:      3,
		Terms:          6,
		Postings:       8,
		DictionaryFile: "dictionary.txt",
		StartedAt:      started,
		Duration:       1500 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, 1, pub.count())

	ev := pub.batches[0][0]
	assert.Equal(t, "abc", ev.Key)
	build := ev.Value.(BuildEvent)
	assert.Equal(t, EventBuild, build.Type)
	assert.Equal(t, int64(1500), build.DurationMs)
	assert.Equal(t, started.Add(1500*time.Millisecond), build.Timestamp)
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(SearchEvent{Query: "cat", TotalHits: 1})

	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestHandlerStatsTop(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"cat", "dog", "dog", "bird"} {
		agg.Record(SearchEvent{Query: q, TotalHits: 1})
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	var stats AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, []QueryCount{{Query: "dog", Count: 2}}, stats.TopQueries)

	for _, bad := range []string{"0", "101", "x"} {
		rec = httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

type flakyPublisher struct {
	calls    int
	failures int
}

func (f *flakyPublisher) PublishBatch(context.Context, []kafka.Event) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("broker not available")
	}
	return nil
}

func TestReliableRetries(t *testing.T) {
	next := &flakyPublisher{failures: 2}
	pub := Reliable(next, resilience.NewBreaker("kafka", 3, time.Hour), resilience.Backoff{Attempts: 3, Initial: time.Millisecond})

	require.NoError(t, pub.PublishBatch(context.Background(), []kafka.Event{{Key: "search"}}))
	assert.Equal(t, 3, next.calls)
}

func TestReliableOpensBreaker(t *testing.T) {
	next := &flakyPublisher{failures: 100}
	br := resilience.NewBreaker("kafka", 1, time.Hour)
	pub := Reliable(next, br, resilience.Backoff{Attempts: 2, Initial: time.Millisecond})

	require.Error(t, pub.PublishBatch(context.Background(), nil))
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, resilience.Open, br.State())

	err := pub.PublishBatch(context.Background(), nil)
	assert.ErrorIs(t, err, resilience.ErrOpen)
	assert.Equal(t, 2, next.calls)
}
