package book

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"booklist/internal/isbn"
)

// ValidationObserver is notified of every ISBN validation the service makes.
type ValidationObserver interface {
	ObserveValidation(isbn.Outcome)
}

// Service provides book-related business logic.
type Service struct {
	repo     Repository
	observer ValidationObserver
}

// NewService creates a new book service. observer may be nil.
func NewService(repo Repository, observer ValidationObserver) *Service {
	return &Service{repo: repo, observer: observer}
}

// List returns a page of books matching the query, ordered by author then title.
func (s *Service) List(ctx context.Context, q Query) ([]Book, int, error) {
	q.Search = strings.TrimSpace(q.Search)
	if q.DateFrom != nil && q.DateTo != nil && *q.DateFrom > *q.DateTo {
		return nil, 0, fmt.Errorf("%w: date_from %d is after date_to %d", ErrInvalidInput, *q.DateFrom, *q.DateTo)
	}
	return s.repo.List(ctx, q)
}

func (s *Service) Get(ctx context.Context, id string) (Book, error) {
	return s.repo.Get(ctx, id)
}

// GetByISBN validates raw before looking it up, so "0-316-42372-6" and
// "0316423726" find the same record.
func (s *Service) GetByISBN(ctx context.Context, raw string) (Book, error) {
	o := s.CheckISBN(raw)
	if !o.Valid() {
		return Book{}, fmt.Errorf("%w: %w", ErrInvalidInput, o.Err())
	}
	return s.repo.GetByISBN(ctx, o.Normalized)
}

// CheckISBN validates raw and reports the outcome to the observer.
func (s *Service) CheckISBN(raw string) isbn.Outcome {
	o := isbn.Validate(raw)
	if s.observer != nil {
		s.observer.ObserveValidation(o)
	}
	return o
}

// Create adds a book entered by hand.
func (s *Service) Create(ctx context.Context, in Input) (Book, error) {
	b, err := s.fromInput(in)
	if err != nil {
		return Book{}, err
	}
	if err := s.repo.Create(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

// Update replaces every editable field of the book, including its ISBN set.
func (s *Service) Update(ctx context.Context, id string, in Input) (Book, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Book{}, err
	}
	b, err := s.fromInput(in)
	if err != nil {
		return Book{}, err
	}
	b.ID = existing.ID
	b.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Upsert stores an imported record. A stored book sharing any ISBN with b is
// refreshed: non-empty imported fields win and the ISBN sets are merged.
// The returned flag is true when a new book was created.
func (s *Service) Upsert(ctx context.Context, b Book) (Book, bool, error) {
	isbns, err := s.validateAll(b.Numbers())
	if err != nil {
		return Book{}, false, err
	}
	if len(isbns) == 0 {
		return Book{}, false, fmt.Errorf("%w: at least one valid isbn is required", ErrInvalidInput)
	}
	b.ISBNs = isbns
	if strings.TrimSpace(b.Title) == "" {
		return Book{}, false, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	existing, err := s.repo.FindByISBNs(ctx, b.Numbers())
	if errors.Is(err, ErrNotFound) {
		if err := s.repo.Create(ctx, &b); err != nil {
			return Book{}, false, err
		}
		return b, true, nil
	}
	if err != nil {
		return Book{}, false, err
	}

	merged := merge(existing, b)
	if err := s.repo.Update(ctx, &merged); err != nil {
		return Book{}, false, err
	}
	return merged, false, nil
}

func (s *Service) fromInput(in Input) (Book, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Book{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Pages != nil && *in.Pages <= 0 {
		return Book{}, fmt.Errorf("%w: pages must be positive", ErrInvalidInput)
	}
	isbns, err := s.validateAll(in.ISBNs)
	if err != nil {
		return Book{}, err
	}
	return Book{
		Title:         title,
		Author:        strings.TrimSpace(in.Author),
		PublishedDate: strings.TrimSpace(in.PublishedDate),
		Language:      strings.TrimSpace(in.Language),
		Pages:         in.Pages,
		CoverURL:      strings.TrimSpace(in.CoverURL),
		ISBNs:         isbns,
	}, nil
}

// validateAll validates and tags each identifier, dropping duplicates that
// differ only in hyphenation.
func (s *Service) validateAll(raw []string) ([]ISBN, error) {
	out := make([]ISBN, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		o := s.CheckISBN(r)
		if !o.Valid() {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, o.Err())
		}
		if seen[o.Normalized] {
			continue
		}
		seen[o.Normalized] = true
		out = append(out, ISBN{Number: o.Normalized, Type: o.Standard})
	}
	return out, nil
}

func merge(existing, imported Book) Book {
	out := existing
	if imported.Title != "" {
		out.Title = imported.Title
	}
	if imported.Author != "" {
		out.Author = imported.Author
	}
	if imported.PublishedDate != "" {
		out.PublishedDate = imported.PublishedDate
	}
	if imported.Language != "" {
		out.Language = imported.Language
	}
	if imported.Pages != nil {
		out.Pages = imported.Pages
	}
	if imported.CoverURL != "" {
		out.CoverURL = imported.CoverURL
	}

	have := make(map[string]bool, len(existing.ISBNs))
	out.ISBNs = append([]ISBN(nil), existing.ISBNs...)
	for _, n := range existing.ISBNs {
		have[n.Number] = true
	}
	for _, n := range imported.ISBNs {
		if !have[n.Number] {
			out.ISBNs = append(out.ISBNs, n)
		}
	}
	return out
}
