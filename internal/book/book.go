package book

import (
	"errors"
	"time"

	"booklist/internal/isbn"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicateISBN is returned when an ISBN already belongs to another book.
	ErrDuplicateISBN = errors.New("isbn already belongs to another book")
	// ErrInvalidInput wraps input rejected by the service.
	ErrInvalidInput = errors.New("invalid book input")
)

// Book represents a catalog record and the identifiers attached to it.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author,omitempty"`
	PublishedDate string    `json:"published_date,omitempty"`
	Language      string    `json:"language,omitempty"`
	Pages         *int      `json:"pages,omitempty"`
	CoverURL      string    `json:"cover_url,omitempty"`
	ISBNs         []ISBN    `json:"isbns"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ISBN is a validated, hyphen-free identifier tagged with its standard.
type ISBN struct {
	Number string        `json:"number"`
	Type   isbn.Standard `json:"type"`
}

// Numbers returns the normalized ISBN numbers of b.
func (b Book) Numbers() []string {
	out := make([]string, len(b.ISBNs))
	for i, n := range b.ISBNs {
		out[i] = n.Number
	}
	return out
}

// Query defines filters and pagination for listing books.
// DateFrom and DateTo are inclusive publication-year bounds.
type Query struct {
	Search   string
	DateFrom *int
	DateTo   *int
	Language string
	Limit    int
	Offset   int
}

// Input is the editable part of a book, as submitted by a client.
type Input struct {
	Title         string   `json:"title" validate:"required,max=255"`
	Author        string   `json:"author" validate:"max=255"`
	PublishedDate string   `json:"published_date" validate:"max=10"`
	Language      string   `json:"language" validate:"max=255"`
	Pages         *int     `json:"pages" validate:"omitempty,gte=1"`
	CoverURL      string   `json:"cover_url" validate:"omitempty,url,max=255"`
	ISBNs         []string `json:"isbns" validate:"dive,isbn"`
}
