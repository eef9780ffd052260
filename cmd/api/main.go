package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"booklist/internal/book"
	"booklist/internal/config"
	"booklist/internal/httpx"
	"booklist/internal/importer"
	"booklist/internal/platform/cache"
	"booklist/internal/platform/logger"
	"booklist/internal/platform/metrics"
	"booklist/internal/platform/openlibrary"
)

func main() {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	dbPool, err := openDB(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	log.Info("database connection OK", "dsn", redactDSN(cfg.DSN))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	deps := routerDeps{cfg: cfg, log: log, db: dbPool, registry: registry, metrics: m}

	olOpts := openlibrary.Options{
		BaseURL:    cfg.OpenLibrary.BaseURL,
		UserAgent:  cfg.OpenLibrary.UserAgent,
		RPS:        cfg.OpenLibrary.RPS,
		MaxRetries: cfg.OpenLibrary.MaxRetries,
		Timeout:    cfg.OpenLibrary.Timeout,
		CacheTTL:   cfg.LookupCacheTTL,
	}
	redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisCache != nil {
		defer redisCache.Close()
		olOpts.Cache = redisCache
		deps.cache = redisCache
		log.Info("lookup cache enabled", "ttl", cfg.LookupCacheTTL)
	}

	bookService := book.NewService(book.NewPostgresRepo(dbPool, cfg.DBTimeout), m)
	importService := importer.NewService(
		openlibrary.NewClient(olOpts),
		bookService,
		importer.NewPostgresRepo(dbPool, cfg.DBTimeout),
		m,
		log,
		importer.Config{MaxResults: cfg.ImportMaxResults},
	)

	deps.books = book.NewHTTPHandler(bookService, log)
	deps.imports = importer.NewHTTPHandler(importService, cfg.ImportSecret, log)
	if cfg.RateLimitRPS > 0 {
		deps.rateLimit = httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer deps.rateLimit.Stop()
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      newRouter(deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// writeTimeout leaves room for one external search plus the database work of
// an import after it.
func writeTimeout(cfg config.Config) time.Duration {
	return cfg.OpenLibrary.Timeout + 10*time.Second
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", redactDSN(dsn), err)
	}
	return pool, nil
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
