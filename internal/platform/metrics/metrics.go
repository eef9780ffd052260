package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"booklist/internal/isbn"
)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	ISBNValidations *prometheus.CounterVec
	ImportRuns      *prometheus.CounterVec
	BooksImported   prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booklist_http_requests_total",
			Help: "HTTP requests served, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		ISBNValidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booklist_isbn_validations_total",
			Help: "ISBN validations, by standard and result.",
		}, []string{"standard", "result"}),
		ImportRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "booklist_import_runs_total",
			Help: "Import runs, by final status.",
		}, []string{"status"}),
		BooksImported: f.NewCounter(prometheus.CounterOpts{
			Name: "booklist_books_imported_total",
			Help: "Books created or refreshed by the importer.",
		}),
	}
}

// ObserveValidation counts one validation outcome. Result is "valid" or the
// reason code.
func (m *Metrics) ObserveValidation(o isbn.Outcome) {
	if m == nil {
		return
	}
	standard := string(o.Standard)
	result := "valid"
	if !o.Valid() {
		standard = "UNKNOWN"
		result = string(o.Reason)
	}
	m.ISBNValidations.WithLabelValues(standard, result).Inc()
}

func (m *Metrics) ObserveImport(status string, imported int) {
	if m == nil {
		return
	}
	m.ImportRuns.WithLabelValues(status).Inc()
	m.BooksImported.Add(float64(imported))
}
