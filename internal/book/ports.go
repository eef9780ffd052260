package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	List(ctx context.Context, q Query) ([]Book, int, error)
	Get(ctx context.Context, id string) (Book, error)
	GetByISBN(ctx context.Context, number string) (Book, error)
	// FindByISBNs returns the first book owning any of numbers.
	FindByISBNs(ctx context.Context, numbers []string) (Book, error)
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id string) error
}
