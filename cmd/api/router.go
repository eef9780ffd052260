package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"booklist/internal/book"
	"booklist/internal/config"
	"booklist/internal/httpx"
	"booklist/internal/importer"
	"booklist/internal/platform/metrics"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	cfg       config.Config
	log       *slog.Logger
	db        pinger
	cache     pinger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	books     *book.HTTPHandler
	imports   *importer.HTTPHandler
	rateLimit *httpx.RateLimitMiddleware
}

func newRouter(d routerDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := d.db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if d.cache != nil {
			if err := d.cache.Ping(ctx); err != nil {
				http.Error(w, "cache not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))

	d.books.Register(mux)
	d.imports.Register(mux)

	mws := []func(http.Handler) http.Handler{
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(d.log),
		httpx.RecoveryMiddleware(d.log),
		httpx.SecurityHeadersMiddleware,
		httpx.CORSMiddleware(d.cfg.CORSAllowedOrigins),
	}
	if d.rateLimit != nil {
		mws = append(mws, d.rateLimit.Middleware)
	}
	mws = append(mws,
		httpx.RequestSizeLimitMiddleware(d.cfg.MaxBodyBytes),
		httpx.MetricsMiddleware(d.metrics),
	)
	return httpx.Chain(mux, mws...)
}
