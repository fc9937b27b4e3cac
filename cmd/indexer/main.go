package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/resilience"
)

func main() {
	cli.Exit("indexer", run(os.Args[1:]))
}

func run(args []string) error {
	cmd := cli.New("indexer", "indexer -i dir -d dict -p postings [-t] [-v] [-verify] [-config file]", os.Stderr)
	input := cmd.Flags.String("i", "", "directory of numerically named documents")
	dict := cmd.Flags.String("d", "", "dictionary file to write")
	post := cmd.Flags.String("p", "", "postings file to write")
	testMode := cmd.Flags.Bool("t", false, "index only the first index.testModeLimit documents")
	verify := cmd.Flags.Bool("verify", false, "re-read the written index and check its invariants")
	cmd.Require("i", "d", "p")

	cfg, err := cmd.Parse(args)
	if err != nil {
		return err
	}
	cfg.Index.DocumentsDir = *input
	cfg.Index.DictionaryFile = *dict
	cfg.Index.PostingsFile = *post
	applyIndexFlags(cmd, cfg, *testMode, *verify)
	if err := cfg.Validate(); err != nil {
		return err
	}
	cli.SetupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	opts := []indexer.Option{indexer.WithMetrics(m)}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.BuildEvents)
		defer producer.Close()
		publisher := analytics.Reliable(producer,
			resilience.NewBreaker("kafka", 1, time.Minute),
			resilience.Backoff{Attempts: 3, Initial: 200 * time.Millisecond},
		)
		opts = append(opts, indexer.WithRecorder(analytics.NewBuildRecorder(publisher)))
		slog.Info("publishing build events", "topic", cfg.Kafka.Topics.BuildEvents)
	}
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("build registry unavailable", "error", err)
		} else {
			defer db.Close()
			reg := registry.New(db)
			if err := reg.EnsureSchema(ctx); err != nil {
				slog.Warn("build registry schema failed", "error", err)
			} else {
				opts = append(opts, indexer.WithRecorder(reg))
			}
		}
	}

	if _, err := indexer.NewBuilder(cfg.Index, cfg.Analysis, opts...).Build(ctx); err != nil {
		return err
	}
	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Warn("writing metrics textfile failed", "path", cfg.Metrics.Textfile, "error", err)
		}
	}
	return nil
}

// applyIndexFlags lets -t and -verify override the config file when given,
// so -t=false indexes the whole corpus even if index.limit is set.
func applyIndexFlags(cmd *cli.Command, cfg *config.Config, testMode, verify bool) {
	if cmd.IsSet("t") {
		if testMode {
			cfg.Index.Limit = cfg.Index.TestModeLimit
		} else {
			cfg.Index.Limit = 0
		}
	}
	if cmd.IsSet("verify") {
		cfg.Index.Verify = verify
	}
}
