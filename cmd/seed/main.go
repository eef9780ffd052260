package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"booklist/internal/book"
	"booklist/internal/config"
	"booklist/internal/platform/logger"
	"booklist/internal/platform/metrics"
)

type upserter interface {
	Upsert(ctx context.Context, b book.Book) (book.Book, bool, error)
}

func intPtr(v int) *int { return &v }

// exampleBooks are stored as given; their ISBNs are validated and tagged on
// the way in.
var exampleBooks = []book.Book{
	{
		Title:         "Warriors of God",
		Author:        "Andrzej Sapkowski",
		PublishedDate: "2021-10-19",
		Language:      "pl",
		Pages:         intPtr(672),
		ISBNs:         []book.ISBN{{Number: "978-0-316-42372-4"}, {Number: "0-316-42372-6"}},
	},
	{
		Title:         "Mitologia Słowiańska",
		Author:        "Jakub Bobrowski",
		PublishedDate: "2017",
		Language:      "pl",
		Pages:         intPtr(160),
		ISBNs:         []book.ISBN{{Number: "9788375763256"}, {Number: "837576325X"}},
	},
	{
		Title:         "Titanicus",
		Author:        "Dan Abnett",
		PublishedDate: "2018-07-26",
		Language:      "en",
		Pages:         intPtr(512),
		ISBNs:         []book.ISBN{{Number: "9781784968168"}},
	},
}

func main() {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := book.NewService(book.NewPostgresRepo(pool, cfg.DBTimeout), metrics.New(nil))
	created, err := seed(ctx, svc, log)
	if err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
	log.Info("seed finished", "created", created, "total", len(exampleBooks))
}

// seed upserts every example book and returns how many were newly created.
// Running it twice leaves the catalog unchanged.
func seed(ctx context.Context, svc upserter, log *slog.Logger) (int, error) {
	created := 0
	for _, b := range exampleBooks {
		stored, isNew, err := svc.Upsert(ctx, b)
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", b.Title, err)
		}
		if isNew {
			created++
		}
		log.Debug("seeded book", "id", stored.ID, "title", stored.Title, "created", isNew)
	}
	return created, nil
}
