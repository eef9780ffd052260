package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"booklist/internal/isbn"
)

const uniqueViolation = "23505"

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

const bookColumns = `b.id, b.title, b.author, b.published_date, b.language, b.pages, b.cover_url, b.created_at, b.updated_at`

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.PublishedDate, &b.Language, &b.Pages, &b.CoverURL, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if q.Search != "" {
		clauses = append(clauses, fmt.Sprintf(`(b.title ILIKE $%[1]d OR b.author ILIKE $%[1]d OR b.language ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM book_isbns i WHERE i.book_id = b.id AND i.number ILIKE $%[1]d))`, argn))
		args = append(args, "%"+escapeLike(q.Search)+"%")
		argn++
	}

	if q.Language != "" {
		clauses = append(clauses, fmt.Sprintf("b.language = $%d", argn))
		args = append(args, q.Language)
		argn++
	}

	if q.DateFrom != nil || q.DateTo != nil {
		clauses = append(clauses, "b.published_date ~ '^[0-9]{4}'")
	}
	if q.DateFrom != nil {
		clauses = append(clauses, fmt.Sprintf("LEFT(b.published_date, 4) >= $%d", argn))
		args = append(args, fmt.Sprintf("%04d", *q.DateFrom))
		argn++
	}
	if q.DateTo != nil {
		clauses = append(clauses, fmt.Sprintf("LEFT(b.published_date, 4) <= $%d", argn))
		args = append(args, fmt.Sprintf("%04d", *q.DateTo))
		argn++
	}

	where := "WHERE " + strings.Join(clauses, " AND ")

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM books b %s", where)
	if err := r.db.QueryRow(timeoutCtx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := fmt.Sprintf(`
		SELECT %s
		FROM books b
		%s
		ORDER BY b.author ASC, b.title ASC, b.id ASC
		LIMIT $%d OFFSET $%d`,
		bookColumns, where, argn, argn+1)

	argsWithPage := append([]any{}, args...)
	argsWithPage = append(argsWithPage, q.Limit, q.Offset)
	rows, err := r.db.Query(timeoutCtx, dataSQL, argsWithPage...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachISBNs(timeoutCtx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PostgresRepo) attachISBNs(ctx context.Context, books []Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]string, len(books))
	index := make(map[string]int, len(books))
	for i := range books {
		ids[i] = books[i].ID
		index[books[i].ID] = i
		books[i].ISBNs = []ISBN{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT book_id, number, type
		FROM book_isbns
		WHERE book_id = ANY($1::uuid[])
		ORDER BY book_id, type, number`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var bookID, number, typ string
		if err := rows.Scan(&bookID, &number, &typ); err != nil {
			return err
		}
		i := index[bookID]
		books[i].ISBNs = append(books[i].ISBNs, ISBN{Number: number, Type: isbn.Standard(typ)})
	}
	return rows.Err()
}

func (r *PostgresRepo) getOne(ctx context.Context, where string, arg any) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM books b WHERE %s LIMIT 1", bookColumns, where)
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}

	books := []Book{b}
	if err := r.attachISBNs(timeoutCtx, books); err != nil {
		return Book{}, err
	}
	return books[0], nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Book, error) {
	return r.getOne(ctx, "b.id = $1", id)
}

func (r *PostgresRepo) GetByISBN(ctx context.Context, number string) (Book, error) {
	return r.getOne(ctx, "b.id = (SELECT book_id FROM book_isbns WHERE number = $1)", number)
}

func (r *PostgresRepo) FindByISBNs(ctx context.Context, numbers []string) (Book, error) {
	if len(numbers) == 0 {
		return Book{}, ErrNotFound
	}
	return r.getOne(ctx, "b.id IN (SELECT book_id FROM book_isbns WHERE number = ANY($1))", numbers)
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	const sql = `
		INSERT INTO books (title, author, published_date, language, pages, cover_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(timeoutCtx, sql, b.Title, b.Author, b.PublishedDate, b.Language, b.Pages, b.CoverURL).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	if err := insertISBNs(timeoutCtx, tx, b.ID, b.ISBNs); err != nil {
		return err
	}
	return tx.Commit(timeoutCtx)
}

func (r *PostgresRepo) Update(ctx context.Context, b *Book) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	const sql = `
		UPDATE books SET
			title = $1,
			author = $2,
			published_date = $3,
			language = $4,
			pages = $5,
			cover_url = $6,
			updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`
	err = tx.QueryRow(timeoutCtx, sql, b.Title, b.Author, b.PublishedDate, b.Language, b.Pages, b.CoverURL, b.ID).
		Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update book: %w", err)
	}

	if _, err := tx.Exec(timeoutCtx, "DELETE FROM book_isbns WHERE book_id = $1", b.ID); err != nil {
		return fmt.Errorf("clear isbns: %w", err)
	}
	if err := insertISBNs(timeoutCtx, tx, b.ID, b.ISBNs); err != nil {
		return err
	}
	return tx.Commit(timeoutCtx)
}

func insertISBNs(ctx context.Context, tx pgx.Tx, bookID string, isbns []ISBN) error {
	const sql = `INSERT INTO book_isbns (book_id, number, type) VALUES ($1, $2, $3)`
	for _, n := range isbns {
		if _, err := tx.Exec(ctx, sql, bookID, n.Number, string(n.Type)); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: %s", ErrDuplicateISBN, n.Number)
			}
			return fmt.Errorf("insert isbn %s: %w", n.Number, err)
		}
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, "DELETE FROM books WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
