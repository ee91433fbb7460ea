// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"libtrack/internal/liberr"
	"libtrack/internal/membership"
	"libtrack/internal/store"
)

// service implements the Service interface.
type service struct {
	db *sql.DB
}

// NewService creates a new catalog service instance.
func NewService(db *sql.DB) Service {
	return &service{db: db}
}

// AddBook creates a new catalog entry.
func (s *service) AddBook(ctx context.Context, actor membership.Identity, title, author, available, isbn string) (*Book, error) {
	if !actor.IsAdmin {
		return nil, liberr.Unauthorized("administrator access required")
	}

	count, normalizedISBN, err := ValidateBook(title, author, available, isbn)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	book := &Book{
		ID:           uuid.New(),
		Title:        title,
		Author:       author,
		AddedAt:      now,
		Available:    count,
		LastEditedAt: now,
		ISBN:         normalizedISBN,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, added_at, available, last_edited_at, isbn)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, book.ID, book.Title, book.Author, book.AddedAt, book.Available, book.LastEditedAt, nullableISBN(normalizedISBN))
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, liberr.Conflict("a book with this ISBN already exists")
		}
		return nil, liberr.Storage(fmt.Errorf("insert book: %w", err))
	}

	return book, nil
}

// EditBook updates title, author, availability and ISBN of an entry.
func (s *service) EditBook(ctx context.Context, actor membership.Identity, id uuid.UUID, title, author, available, isbn string) error {
	if !actor.IsAdmin {
		return liberr.Unauthorized("administrator access required")
	}

	count, normalizedISBN, err := ValidateBook(title, author, available, isbn)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET title = $1, author = $2, available = $3, last_edited_at = $4, isbn = $5
		WHERE id = $6
	`, title, author, count, time.Now().UTC(), nullableISBN(normalizedISBN), id)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return liberr.Conflict("a book with this ISBN already exists")
		}
		return liberr.Storage(fmt.Errorf("update book: %w", err))
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return liberr.NotFound("book not found")
	}
	return nil
}

// DeleteBook removes an entry, refused while any copy is still out.
func (s *service) DeleteBook(ctx context.Context, actor membership.Identity, id uuid.UUID) error {
	if !actor.IsAdmin {
		return liberr.Unauthorized("administrator access required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return liberr.Storage(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	// The book row lock serializes against in-flight borrows, which lock
	// the same row; a borrow committing between the count and the delete
	// would otherwise be cascaded away.
	var lockedID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM books WHERE id = $1 FOR UPDATE
	`, id).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return liberr.NotFound("book not found")
		}
		return liberr.Storage(fmt.Errorf("lock book: %w", err))
	}

	var active int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM borrows WHERE book_id = $1 AND NOT returned
	`, id).Scan(&active)
	if err != nil {
		return liberr.Storage(fmt.Errorf("count active borrows: %w", err))
	}
	if active > 0 {
		return liberr.Conflict("book has copies still on loan")
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return liberr.Storage(fmt.Errorf("delete book: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return liberr.NotFound("book not found")
	}

	if err := tx.Commit(); err != nil {
		return liberr.Storage(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// GetBook retrieves a catalog entry by ID.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, author, added_at, available, last_edited_at, isbn
		FROM books
		WHERE id = $1
	`, id)

	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, liberr.NotFound("book not found")
		}
		return nil, liberr.Storage(fmt.Errorf("query book: %w", err))
	}
	return book, nil
}

// Search lists catalog entries matching the query on title, author or
// ISBN. An empty query lists the whole catalog.
func (s *service) Search(ctx context.Context, query string) ([]*Book, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if query == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, title, author, added_at, available, last_edited_at, isbn
			FROM books
			ORDER BY title
		`)
	} else {
		pattern := "%" + query + "%"
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, title, author, added_at, available, last_edited_at, isbn
			FROM books
			WHERE title ILIKE $1 OR author ILIKE $1 OR isbn ILIKE $1
			ORDER BY title
		`, pattern)
	}
	if err != nil {
		return nil, liberr.Storage(fmt.Errorf("search books: %w", err))
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, liberr.Storage(fmt.Errorf("scan book: %w", err))
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, liberr.Storage(fmt.Errorf("iterate books: %w", err))
	}

	return books, nil
}

// Popular lists books by their all-time borrow counts, descending.
func (s *service) Popular(ctx context.Context, limit int) ([]PopularBook, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.title, b.author, COUNT(br.id) AS borrow_count
		FROM books b
		LEFT JOIN borrows br ON b.id = br.book_id
		GROUP BY b.id, b.title, b.author
		ORDER BY borrow_count DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, liberr.Storage(fmt.Errorf("query popular books: %w", err))
	}
	defer rows.Close()

	var books []PopularBook
	for rows.Next() {
		var b PopularBook
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.BorrowCount); err != nil {
			return nil, liberr.Storage(fmt.Errorf("scan popular book: %w", err))
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, liberr.Storage(fmt.Errorf("iterate popular books: %w", err))
	}

	return books, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*Book, error) {
	var book Book
	var isbn sql.NullString
	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.AddedAt, &book.Available, &book.LastEditedAt, &isbn)
	if err != nil {
		return nil, err
	}
	book.ISBN = isbn.String
	return &book, nil
}

func nullableISBN(isbn string) sql.NullString {
	return sql.NullString{String: isbn, Valid: isbn != ""}
}
