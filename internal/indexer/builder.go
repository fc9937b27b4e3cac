package indexer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/tracing"
)

// Document is one corpus file selected for indexing.
type Document struct {
	ID   int
	Path string
}

// BuildResult summarises a finished build.
type BuildResult struct {
	TraceID   string
	Documents int
	// CorpusSize counts every document in the corpus, including those
	// skipped by a limit. It is the N of the idf.
	CorpusSize     int
	Terms          int
	Postings       int
	DictionaryFile string
	PostingsFile   string
	DocLengthsFile string
	StartedAt      time.Time
	Duration       time.Duration
}

// Recorder is notified after every successful build. The build registry and
// the build-event publisher implement it.
type Recorder interface {
	RecordBuild(ctx context.Context, result *BuildResult) error
}

type Option func(*Builder)

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithRecorder adds a Recorder. Recorder failures are logged, never fatal.
func WithRecorder(r Recorder) Option {
	return func(b *Builder) { b.recorders = append(b.recorders, r) }
}

// Builder turns a directory of numerically named text files into the
// dictionary, postings and document-length files.
type Builder struct {
	cfg       config.IndexConfig
	tokenizer *tokenizer.Tokenizer
	metrics   *metrics.Metrics
	recorders []Recorder
	logger    *slog.Logger
}

func NewBuilder(cfg config.IndexConfig, analysis config.AnalysisConfig, opts ...Option) *Builder {
	b := &Builder{
		cfg:       cfg,
		tokenizer: tokenizer.New(tokenizer.Options{FilterPunctuation: analysis.FilterPunctuation}),
		logger:    slog.Default().With("component", "index-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs every build phase in order. Each output file is replaced
// atomically.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	started := time.Now()
	ctx, root := tracing.StartSpan(ctx, "index-build", "")
	defer func() {
		root.End()
		root.Log(b.logger)
	}()

	var (
		docs       []Document
		corpusSize int
		mem        = index.NewMemoryIndex()
	)
	phases := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"enumerate", func(ctx context.Context) error {
			all, err := ListCorpus(b.cfg.DocumentsDir, 0, b.logger)
			if err != nil {
				return err
			}
			corpusSize = len(all)
			docs = all
			if b.cfg.Limit > 0 && len(docs) > b.cfg.Limit {
				docs = docs[:b.cfg.Limit]
			}
			return nil
		}},
		{"tokenize", func(ctx context.Context) error { return b.indexDocuments(ctx, mem, docs) }},
		{"log-weight", func(ctx context.Context) error { mem.LogWeight(); return nil }},
		{"sort", func(ctx context.Context) error { mem.SortTerms(); return nil }},
		{"write", func(ctx context.Context) error { return b.write(mem, corpusSize) }},
		{"verify", func(ctx context.Context) error { return b.verify() }},
	}
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		elapsed, err := tracing.Phase(ctx, phase.name, phase.fn)
		if b.metrics != nil {
			b.metrics.BuildPhaseDuration.WithLabelValues(phase.name).Observe(elapsed.Seconds())
		}
		if err != nil {
			return nil, fmt.Errorf("%s phase: %w", phase.name, err)
		}
		b.logger.Debug("build phase complete", "phase", phase.name, "duration_ms", elapsed.Milliseconds())
	}

	result := &BuildResult{
		TraceID:        root.TraceID,
		Documents:      mem.DocCount(),
		CorpusSize:     corpusSize,
		Terms:          mem.Len(),
		Postings:       countPostings(mem),
		DictionaryFile: b.cfg.DictionaryFile,
		PostingsFile:   b.cfg.PostingsFile,
		DocLengthsFile: b.cfg.DocLengthsFile,
		StartedAt:      started,
		Duration:       time.Since(started),
	}
	root.SetAttr("documents", result.Documents)
	root.SetAttr("terms", result.Terms)

	if b.metrics != nil {
		b.metrics.DocsIndexedTotal.Add(float64(result.Documents))
		b.metrics.IndexTerms.Set(float64(result.Terms))
		b.metrics.IndexPostings.Set(float64(result.Postings))
	}
	for _, r := range b.recorders {
		if err := r.RecordBuild(ctx, result); err != nil {
			b.logger.Error("recording build failed", "error", err)
		}
	}
	b.logger.Info("index built",
		"documents", result.Documents,
		"terms", result.Terms,
		"postings", result.Postings,
		"dictionary", result.DictionaryFile,
		"postings_file", result.PostingsFile,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (b *Builder) indexDocuments(ctx context.Context, mem *index.MemoryIndex, docs []Document) error {
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		mem.AddDocument()
		terms, err := b.indexFile(mem, doc)
		if err != nil {
			return err
		}
		b.logger.Debug("document indexed", "doc_id", doc.ID, "terms", terms, "progress", i+1, "of", len(docs))
	}
	return nil
}

func (b *Builder) indexFile(mem *index.MemoryIndex, doc Document) (int, error) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return 0, fmt.Errorf("opening document %d: %w", doc.ID, err)
	}
	defer f.Close()

	count := 0
	br := bufio.NewReader(f)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			for _, term := range b.tokenizer.Tokenize(line) {
				mem.Insert(term, doc.ID)
				count++
			}
		}
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("reading document %d: %w", doc.ID, err)
		}
	}
}

func (b *Builder) write(mem *index.MemoryIndex, corpusSize int) error {
	w := store.NewWriter(b.cfg.DictionaryFile, b.cfg.PostingsFile)
	if err := w.WriteIndex(mem.Entries()); err != nil {
		return err
	}
	if err := w.ConvertOffsets(); err != nil {
		return err
	}
	if err := w.PrependHeader(corpusSize); err != nil {
		return err
	}
	return store.WriteDocLengths(b.cfg.DocLengthsFile, mem.DocumentLengths())
}

func (b *Builder) verify() error {
	if !b.cfg.Verify {
		return nil
	}
	r, err := store.OpenReader(b.cfg.DictionaryFile, b.cfg.PostingsFile)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Verify()
}

// ListCorpus returns the documents in dir sorted by numeric ID. Every
// regular file name must be a positive decimal integer; two names with the
// same value are rejected. A positive limit keeps only the first limit
// documents.
func ListCorpus(dir string, limit int, logger *slog.Logger) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory %s: %w", dir, err)
	}
	seen := make(map[int]string, len(entries))
	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			logger.Warn("skipping directory in corpus", "name", name)
			continue
		}
		id, ok := parseDocID(name)
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput,
				"corpus file %q is not named by a positive integer document id", name)
		}
		if prev, dup := seen[id]; dup {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput,
				"corpus files %q and %q share document id %d", prev, name, id)
		}
		seen[id] = name
		docs = append(docs, Document{ID: id, Path: filepath.Join(dir, name)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func parseDocID(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func countPostings(mem *index.MemoryIndex) int {
	n := 0
	for _, entry := range mem.Entries() {
		n += len(entry.Postings)
	}
	return n
}
