package importer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	LinkBook(ctx context.Context, runID, bookID string, created bool) error
	GetRun(ctx context.Context, id string) (Run, error)
}

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) CreateRun(ctx context.Context, run *Run) error {
	const sql = `
		INSERT INTO import_runs (terms, status, started_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.QueryRow(timeoutCtx, sql, run.Terms, run.Status, run.StartedAt).Scan(&run.ID)
}

func (r *PostgresRepo) UpdateRun(ctx context.Context, run *Run) error {
	const sql = `
		UPDATE import_runs SET
			finished_at = $1,
			status = $2,
			fetched = $3,
			imported = $4,
			skipped = $5,
			error = $6
		WHERE id = $7`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, sql, run.FinishedAt, run.Status, run.Fetched, run.Imported, run.Skipped, run.Error, run.ID)
	return err
}

func (r *PostgresRepo) LinkBook(ctx context.Context, runID, bookID string, created bool) error {
	const sql = `
		INSERT INTO import_run_books (run_id, book_id, created)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, sql, runID, bookID, created)
	return err
}

func (r *PostgresRepo) GetRun(ctx context.Context, id string) (Run, error) {
	const sql = `
		SELECT id, terms, status, started_at, finished_at, fetched, imported, skipped, error
		FROM import_runs
		WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var run Run
	err := r.db.QueryRow(timeoutCtx, sql, id).Scan(&run.ID, &run.Terms, &run.Status, &run.StartedAt, &run.FinishedAt,
		&run.Fetched, &run.Imported, &run.Skipped, &run.Error)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, err
	}

	rows, err := r.db.Query(timeoutCtx, `SELECT book_id FROM import_run_books WHERE run_id = $1 ORDER BY book_id`, id)
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var bookID string
		if err := rows.Scan(&bookID); err != nil {
			return Run{}, err
		}
		run.BookIDs = append(run.BookIDs, bookID)
	}
	return run, rows.Err()
}
