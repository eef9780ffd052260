package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"booklist/internal/book"
	"booklist/internal/isbn"
	"booklist/internal/platform/openlibrary"
)

// finalizeTimeout bounds the final run update, which outlives the request.
const finalizeTimeout = 5 * time.Second

type Config struct {
	MaxResults int
}

type Searcher interface {
	Search(ctx context.Context, p openlibrary.SearchParams, limit int) (*openlibrary.SearchResponse, error)
}

// BookUpserter stores imported records; *book.Service satisfies it.
type BookUpserter interface {
	Upsert(ctx context.Context, b book.Book) (book.Book, bool, error)
}

type Recorder interface {
	ObserveImport(status string, imported int)
}

type Service struct {
	client  Searcher
	books   BookUpserter
	runs    Repository
	metrics Recorder
	log     *slog.Logger
	cfg     Config
}

func NewService(client Searcher, books BookUpserter, runs Repository, metrics Recorder, log *slog.Logger, cfg Config) *Service {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	return &Service{
		client:  client,
		books:   books,
		runs:    runs,
		metrics: metrics,
		log:     log,
		cfg:     cfg,
	}
}

// Import searches the external catalog and stores every result carrying at
// least one valid ISBN. The run is returned even when err is non-nil, as long
// as it was created.
func (s *Service) Import(ctx context.Context, req Request) (run Run, err error) {
	req, err = s.normalize(req)
	if err != nil {
		return Run{}, err
	}

	run = Run{
		Terms:     req.Terms(),
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.runs.CreateRun(ctx, &run); err != nil {
		return Run{}, fmt.Errorf("create import run: %w", err)
	}

	defer func() {
		now := time.Now().UTC()
		run.FinishedAt = &now
		if err != nil && !errors.Is(err, ErrNoResults) && run.Error == "" {
			run.Error = err.Error()
		}
		if run.Error != "" {
			run.Status = StatusFailed
		} else {
			run.Status = StatusCompleted
		}
		updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
		defer cancel()
		if updateErr := s.runs.UpdateRun(updateCtx, &run); updateErr != nil {
			s.log.Error("failed to update import run", "run_id", run.ID, "error", updateErr)
		}
		if s.metrics != nil {
			s.metrics.ObserveImport(run.Status, run.Imported)
		}
	}()

	res, err := s.client.Search(ctx, openlibrary.SearchParams{
		Query:  req.Query,
		Title:  req.Title,
		Author: req.Author,
		ISBN:   req.ISBN,
	}, req.Limit)
	if err != nil {
		run.Error = fmt.Sprintf("search failed: %v", err)
		return run, err
	}
	if len(res.Docs) == 0 {
		return run, ErrNoResults
	}

	for _, doc := range res.Docs {
		run.Fetched++

		b, ok := fromDoc(doc)
		if !ok {
			run.Skipped++
			continue
		}

		stored, created, err := s.books.Upsert(ctx, b)
		if err != nil {
			if ctx.Err() != nil {
				return run, ctx.Err()
			}
			s.log.Warn("skipping imported book", "run_id", run.ID, "key", doc.Key, "error", err)
			run.Skipped++
			continue
		}
		run.Imported++
		run.BookIDs = append(run.BookIDs, stored.ID)
		if err := s.runs.LinkBook(ctx, run.ID, stored.ID, created); err != nil {
			s.log.Warn("failed to link book to import run", "run_id", run.ID, "book_id", stored.ID, "error", err)
		}
	}

	s.log.Info("import finished", "run_id", run.ID, "terms", run.Terms,
		"fetched", run.Fetched, "imported", run.Imported, "skipped", run.Skipped)
	return run, nil
}

func (s *Service) GetRun(ctx context.Context, id string) (Run, error) {
	return s.runs.GetRun(ctx, id)
}

func (s *Service) normalize(req Request) (Request, error) {
	req.Query = strings.TrimSpace(req.Query)
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	req.ISBN = strings.TrimSpace(req.ISBN)
	if req.empty() {
		return req, fmt.Errorf("%w: at least one search term is required", ErrInvalidRequest)
	}
	if req.ISBN != "" {
		o := isbn.Validate(req.ISBN)
		if !o.Valid() {
			return req, fmt.Errorf("%w: %w", ErrInvalidRequest, o.Err())
		}
		req.ISBN = o.Normalized
	}
	if req.Limit <= 0 || req.Limit > s.cfg.MaxResults {
		req.Limit = s.cfg.MaxResults
	}
	return req, nil
}

// fromDoc maps a search result to a book, keeping only identifiers that
// validate. ok is false when none do.
func fromDoc(doc openlibrary.Doc) (book.Book, bool) {
	b := book.Book{
		Title:    strings.TrimSpace(doc.Title),
		Author:   strings.Join(doc.AuthorNames, ", "),
		CoverURL: doc.CoverURL(),
	}
	switch {
	case len(doc.PublishDate) > 0:
		b.PublishedDate = doc.PublishDate[0]
	case doc.FirstPublishYear > 0:
		b.PublishedDate = strconv.Itoa(doc.FirstPublishYear)
	}
	if len(doc.Language) > 0 {
		b.Language = doc.Language[0]
	}
	if doc.NumberOfPages > 0 {
		pages := doc.NumberOfPages
		b.Pages = &pages
	}

	for _, raw := range doc.ISBN {
		o := isbn.Validate(raw)
		if !o.Valid() {
			continue
		}
		b.ISBNs = append(b.ISBNs, book.ISBN{Number: o.Normalized, Type: o.Standard})
	}
	return b, len(b.ISBNs) > 0 && b.Title != ""
}
