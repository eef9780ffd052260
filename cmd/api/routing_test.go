package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booklist/internal/book"
	"booklist/internal/config"
	"booklist/internal/importer"
	"booklist/internal/platform/metrics"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, db pinger) (http.Handler, *book.MockRepository) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	repo := book.NewMockRepository(gomock.NewController(t))
	bookService := book.NewService(repo, m)
	importService := importer.NewService(nil, bookService, nil, m, log, importer.Config{})

	return newRouter(routerDeps{
		cfg:      config.Config{MaxBodyBytes: 1 << 20},
		log:      log,
		db:       db,
		registry: registry,
		metrics:  m,
		books:    book.NewHTTPHandler(bookService, log),
		imports:  importer.NewHTTPHandler(importService, "", log),
	}), repo
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouter_Health(t *testing.T) {
	h, _ := newTestRouter(t, fakePinger{})

	w := do(h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/readyz").Code)
}

func TestRouter_ReadyzReportsDatabase(t *testing.T) {
	h, _ := newTestRouter(t, fakePinger{err: errors.New("down")})

	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/readyz").Code)
}

func TestRouter_V1Routes(t *testing.T) {
	h, repo := newTestRouter(t, fakePinger{})
	repo.EXPECT().List(gomock.Any(), gomock.Any()).Return([]book.Book{}, 0, nil)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/v1/books").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/v1/isbn/0316423726").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/books").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodPatch, "/v1/books").Code)
}

func TestRouter_MetricsExposeCounters(t *testing.T) {
	h, _ := newTestRouter(t, fakePinger{})

	do(h, http.MethodGet, "/v1/isbn/978-0-316-42372-4")
	do(h, http.MethodGet, "/v1/isbn/0316423727")

	w := do(h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `booklist_isbn_validations_total{result="valid",standard="ISBN_13"} 1`)
	assert.Contains(t, body, `booklist_isbn_validations_total{result="CHECKSUM_MISMATCH",standard="UNKNOWN"} 1`)
	assert.True(t, strings.Contains(body, `route="GET /v1/isbn/{isbn}"`))
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://***@localhost:5432/booklist", redactDSN("postgres://user:pw@localhost:5432/booklist"))
	assert.Equal(t, "no-scheme", redactDSN("no-scheme"))
}

func TestWriteTimeout_OutlastsSearchBudget(t *testing.T) {
	cfg := config.Config{OpenLibrary: config.OpenLibrary{Timeout: 20 * time.Second}}

	assert.Greater(t, writeTimeout(cfg), cfg.OpenLibrary.Timeout)
}
