package importer

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

var (
	// ErrInvalidRequest is returned when an import request has no usable search term.
	ErrInvalidRequest = errors.New("invalid import request")
	// ErrNoResults is returned when the external catalog found nothing to import.
	ErrNoResults = errors.New("no books found")
	// ErrRunNotFound is returned when an import run does not exist.
	ErrRunNotFound = errors.New("import run not found")
)

// Request holds the search terms of an import. At least one term is required.
type Request struct {
	Query  string `json:"query" validate:"max=255"`
	Title  string `json:"title" validate:"max=255"`
	Author string `json:"author" validate:"max=255"`
	ISBN   string `json:"isbn" validate:"omitempty,isbn"`
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=100"`
}

func (r Request) empty() bool {
	return r.Query == "" && r.Title == "" && r.Author == "" && r.ISBN == ""
}

// Terms renders the request as a single string for the run record.
func (r Request) Terms() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("q", r.Query)
	add("title", r.Title)
	add("author", r.Author)
	add("isbn", r.ISBN)
	return strings.Join(parts, "&")
}

type Run struct {
	ID         string     `json:"id"`
	Terms      string     `json:"terms"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Fetched    int        `json:"fetched"`
	Imported   int        `json:"imported"`
	Skipped    int        `json:"skipped"`
	Error      string     `json:"error,omitempty"`
	BookIDs    []string   `json:"book_ids,omitempty"`
}
