package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/kafka"
)

// BuildRecorder publishes one BuildEvent per finished index build.
type BuildRecorder struct {
	publisher Publisher
}

func NewBuildRecorder(publisher Publisher) *BuildRecorder {
	return &BuildRecorder{publisher: publisher}
}

func (r *BuildRecorder) RecordBuild(ctx context.Context, result *indexer.BuildResult) error {
	event := NewBuildEvent(result)
	if err := r.publisher.PublishBatch(ctx, []kafka.Event{{Key: event.TraceID, Value: event}}); err != nil {
		return fmt.Errorf("publishing build event: %w", err)
	}
	return nil
}

func NewBuildEvent(result *indexer.BuildResult) BuildEvent {
	return BuildEvent{
		Type:       EventBuild,
		TraceID:    result.TraceID,
		Documents:  result.Documents,
		Terms:      result.Terms,
		Postings:   result.Postings,
		Dictionary: result.DictionaryFile,
		DurationMs: result.Duration.Milliseconds(),
		Timestamp:  result.StartedAt.Add(result.Duration).UTC().Truncate(time.Millisecond),
	}
}
