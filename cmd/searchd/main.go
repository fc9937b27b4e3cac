package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/registry"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/resilience"
)

func main() {
	cli.Exit("searchd", run(os.Args[1:]))
}

func run(args []string) error {
	cmd := cli.New("searchd", "searchd -d dict -p postings [-v] [-config file]", os.Stderr)
	dict := cmd.Flags.String("d", "", "dictionary file")
	post := cmd.Flags.String("p", "", "postings file")
	cmd.Require("d", "p")

	cfg, err := cmd.Parse(args)
	if err != nil {
		return err
	}
	cfg.Index.DictionaryFile = *dict
	cfg.Index.PostingsFile = *post
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

	checker := health.NewChecker(2 * time.Second)
	checker.Require("index", func(ctx context.Context) error {
		for _, path := range []string{cfg.Index.DictionaryFile, cfg.Index.PostingsFile, cfg.Index.DocLengthsFile} {
			if _, err := os.Stat(path); err != nil {
				return err
			}
		}
		return nil
	})

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("build registry unavailable", "error", err)
		} else {
			defer db.Close()
			checker.Optional("postgres", db.Ping)
			checkLatestBuild(ctx, registry.New(db), cfg.Index)
		}
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			backend := cache.WithBreaker(redisClient, resilience.NewBreaker("redis", 5, 30*time.Second))
			queryCache = cache.New(backend, cfg.Redis.CacheTTL, m)
			checker.Optional("redis", redisClient.Ping)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		publisher = analytics.Reliable(producer,
			resilience.NewBreaker("kafka", 3, time.Minute),
			resilience.Backoff{Attempts: 3, Initial: 200 * time.Millisecond, Max: 2 * time.Second},
		)
	}
	aggregator := analytics.NewAggregator()
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	collector := analytics.NewCollector(publisher, aggregator, 100, 5*time.Second)
	collector.Start(collectorCtx)
	defer func() {
		stopCollector()
		collector.Close()
	}()

	mux := http.NewServeMux()
	handler.New(engine, queryCache, collector, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults).Routes(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", m.Handler())
		if cfg.Metrics.Port != 0 && cfg.Metrics.Port != cfg.Server.Port {
			shutdownMetrics := m.StartServer(cfg.Metrics.Port)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				shutdownMetrics(shutdownCtx)
			}()
		}
	}

	mw := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Metrics(m),
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		go sweepLimiter(ctx, limiter)
		mw = append(mw, middleware.RateLimit(limiter))
	}
	mw = append(mw, middleware.Timeout(cfg.Server.RequestTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mw...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("searchd listening",
			"addr", server.Addr,
			"documents", engine.DocCount(),
			"terms", engine.Terms(),
			"checks", checker.Names(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("searchd stopped")
	return nil
}

// checkLatestBuild warns when the index on disk differs from the most
// recently registered build.
func checkLatestBuild(ctx context.Context, reg *registry.Registry, idx config.IndexConfig) {
	manifest, err := reg.Latest(ctx)
	if err != nil {
		slog.Warn("no registered build to check against", "error", err)
		return
	}
	err = manifest.CheckArtifacts(map[string]string{
		registry.RoleDictionary: idx.DictionaryFile,
		registry.RolePostings:   idx.PostingsFile,
		registry.RoleDocLengths: idx.DocLengthsFile,
	})
	if err != nil {
		slog.Warn("index does not match latest registered build", "build", manifest.TraceID, "error", err)
		return
	}
	slog.Info("index matches registered build", "build", manifest.TraceID, "built_at", manifest.BuiltAt)
}

func sweepLimiter(ctx context.Context, l *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			slog.Debug("rate limiter swept", "clients", l.Sweep(now))
		}
	}
}
