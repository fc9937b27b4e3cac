package analytics

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/resilience"
)

type reliablePublisher struct {
	next    Publisher
	breaker *resilience.Breaker
	backoff resilience.Backoff
}

// Reliable retries each batch with backoff and stops calling next while
// breaker is open. A batch rejected here stays in the Collector's buffer.
func Reliable(next Publisher, breaker *resilience.Breaker, backoff resilience.Backoff) Publisher {
	return &reliablePublisher{next: next, breaker: breaker, backoff: backoff}
}

func (p *reliablePublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	return p.breaker.Do(func() error {
		return resilience.Retry(ctx, "publish analytics", p.backoff, func(ctx context.Context) error {
			return p.next.PublishBatch(ctx, events)
		})
	})
}
