package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/store"
)

// RunBatch answers every line of queriesPath and writes one result line per
// query, in input order, to resultsPath. The results file is truncated
// before the first query runs and receives the answers only once every
// query has succeeded, so a failed run leaves it empty. It returns the
// number of queries answered.
func (e *Engine) RunBatch(ctx context.Context, queriesPath, resultsPath string) (int, error) {
	out, err := os.Create(resultsPath)
	if err != nil {
		return 0, fmt.Errorf("creating results file: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("closing results file: %w", err)
	}

	in, err := os.Open(queriesPath)
	if err != nil {
		return 0, fmt.Errorf("opening queries file: %w", err)
	}
	defer in.Close()

	n := 0
	err = store.WriteAtomic(resultsPath, func(bw *bufio.Writer) error {
		br := bufio.NewReader(in)
		for {
			line, readErr := br.ReadString('\n')
			if readErr != nil && readErr != io.EOF {
				return fmt.Errorf("reading queries: %w", readErr)
			}
			if line == "" && readErr == io.EOF {
				return nil
			}

			start := time.Now()
			result, err := e.Search(ctx, line, e.topK)
			if err != nil {
				return fmt.Errorf("query %d: %w", n+1, err)
			}
			if e.metrics != nil {
				e.metrics.SearchLatency.WithLabelValues("batch").Observe(time.Since(start).Seconds())
			}
			if _, err := bw.WriteString(result.DocIDs() + "\n"); err != nil {
				return fmt.Errorf("writing result %d: %w", n+1, err)
			}
			n++

			if readErr == io.EOF {
				return nil
			}
		}
	})
	if err != nil {
		return n, err
	}
	e.logger.Info("batch complete", "queries", n, "results_file", resultsPath)
	return n, nil
}
