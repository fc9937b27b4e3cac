package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/metrics"
)

type SearchResult struct {
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	// Terms maps each matched query term to its document frequency.
	Terms map[string]int `json:"terms"`
}

// DocIDs returns the ranked document IDs space-joined, the batch output
// line for this result.
func (r *SearchResult) DocIDs() string {
	ids := make([]string, len(r.Results))
	for i, doc := range r.Results {
		ids[i] = strconv.Itoa(doc.DocID)
	}
	return strings.Join(ids, " ")
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine answers queries against one on-disk index. The dictionary and the
// document lengths are loaded once; postings are read per query. An Engine
// is safe for concurrent use.
type Engine struct {
	reader    *store.Reader
	lengths   map[int]float64
	tokenizer *tokenizer.Tokenizer
	topK      int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Open loads the dictionary, the postings handle and the document-length
// table named by idx.
func Open(idx config.IndexConfig, analysis config.AnalysisConfig, search config.SearchConfig, opts ...Option) (*Engine, error) {
	reader, err := store.OpenReader(idx.DictionaryFile, idx.PostingsFile)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	lengths, err := store.LoadDocLengths(idx.DocLengthsFile)
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("loading document lengths: %w", err)
	}
	e := &Engine{
		reader:    reader,
		lengths:   lengths,
		tokenizer: tokenizer.New(tokenizer.Options{FilterPunctuation: analysis.FilterPunctuation}),
		topK:      search.TopK,
		logger:    slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics != nil {
		e.metrics.IndexTerms.Set(float64(reader.Terms()))
	}
	e.logger.Info("index loaded",
		"dictionary", idx.DictionaryFile,
		"terms", reader.Terms(),
		"documents", reader.DocCount(),
		"lengths", len(lengths),
	)
	return e, nil
}

// Parse tokenizes a raw query the same way the index was built.
func (e *Engine) Parse(query string) *parser.Query {
	return parser.Parse(e.tokenizer, query)
}

// Search parses and executes query, returning at most limit results.
// limit <= 0 uses the configured top K.
func (e *Engine) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	return e.Execute(ctx, e.Parse(query), limit)
}

// Execute scores every document holding at least one query term and keeps
// the best limit of them.
func (e *Engine) Execute(ctx context.Context, q *parser.Query, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = e.topK
	}
	result := &SearchResult{
		Query:   q.Raw,
		Results: []ranker.ScoredDoc{},
		Terms:   map[string]int{},
	}

	terms := make([]ranker.TermPostings, 0, len(q.Frequencies))
	for _, term := range q.Distinct() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, ok := e.reader.Lookup(term)
		if !ok {
			continue
		}
		postings, err := e.reader.ReadPostings(entry)
		if err != nil {
			e.countQuery("error")
			return nil, fmt.Errorf("reading postings for %q: %w", term, err)
		}
		if e.metrics != nil {
			e.metrics.PostingsReadBytes.Add(float64(entry.Length))
		}
		terms = append(terms, ranker.TermPostings{
			Term:     term,
			DocFreq:  entry.DocFreq,
			QueryTF:  q.Frequencies[term],
			QueryPos: q.FirstSeen[term],
			Postings: postings,
		})
		result.Terms[term] = entry.DocFreq
	}

	scored, err := ranker.Score(terms, e.reader.DocCount(), e.docLength)
	if err != nil {
		e.countQuery("error")
		return nil, err
	}
	result.TotalHits = len(scored)
	result.Results = merger.TopK(scored, limit)

	if len(result.Results) == 0 {
		e.countQuery("zero_result")
	} else {
		e.countQuery("hit")
	}
	if e.metrics != nil {
		e.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	}
	e.logger.Debug("query executed",
		"query", q.Raw,
		"terms", q.Terms,
		"matched_terms", len(terms),
		"candidates", len(scored),
		"results", len(result.Results),
	)
	return result, nil
}

func (e *Engine) docLength(docID int) (float64, bool) {
	l, ok := e.lengths[docID]
	return l, ok
}

func (e *Engine) countQuery(resultType string) {
	if e.metrics != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	}
}

func (e *Engine) DocCount() int {
	return e.reader.DocCount()
}

func (e *Engine) Terms() int {
	return e.reader.Terms()
}

func (e *Engine) Close() error {
	return e.reader.Close()
}
