package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/metrics"
)

func main() {
	cli.Exit("searcher", run(os.Args[1:]))
}

func run(args []string) error {
	cmd := cli.New("searcher", "searcher -d dict -p postings -q queries -o results [-v] [-config file]", os.Stderr)
	dict := cmd.Flags.String("d", "", "dictionary file")
	post := cmd.Flags.String("p", "", "postings file")
	queries := cmd.Flags.String("q", "", "query file, one query per line")
	results := cmd.Flags.String("o", "", "results file to write")
	cmd.Require("d", "p", "q", "o")

	cfg, err := cmd.Parse(args)
	if err != nil {
		return err
	}
	cfg.Index.DictionaryFile = *dict
	cfg.Index.PostingsFile = *post
	cfg.Search.QueriesFile = *queries
	cfg.Search.ResultsFile = *results
	if err := cfg.Validate(); err != nil {
		return err
	}
	cli.SetupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	engine, err := executor.Open(cfg.Index, cfg.Analysis, cfg.Search, executor.WithMetrics(m))
	if err != nil {
		return err
	}
	defer engine.Close()

	if _, err := engine.RunBatch(ctx, cfg.Search.QueriesFile, cfg.Search.ResultsFile); err != nil {
		return err
	}
	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Warn("writing metrics textfile failed", "path", cfg.Metrics.Textfile, "error", err)
		}
	}
	return nil
}
