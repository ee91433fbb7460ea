// Package store owns the relational schema and first-run bootstrap.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			available INT NOT NULL CHECK (available >= 0),
			last_edited_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			isbn TEXT UNIQUE
		)`,
		// Borrow and fine history follows its user or book out of the
		// database; deletion guards in the services keep rows with open
		// borrows from being deleted in the first place.
		`CREATE TABLE IF NOT EXISTS borrows (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			book_id UUID NOT NULL REFERENCES books (id) ON DELETE CASCADE,
			borrowed_at TIMESTAMPTZ NOT NULL,
			due_at TIMESTAMPTZ NOT NULL,
			returned BOOLEAN NOT NULL DEFAULT FALSE,
			fine_amount NUMERIC(10,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS fines (
			id UUID PRIMARY KEY,
			borrow_id UUID NOT NULL REFERENCES borrows (id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			amount NUMERIC(10,2) NOT NULL,
			calculated_at TIMESTAMPTZ NOT NULL,
			paid BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			actor_id UUID NOT NULL,
			action TEXT NOT NULL,
			subject_id UUID NOT NULL,
			detail JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// At most one open borrow per (user, book) pair.
		`CREATE UNIQUE INDEX IF NOT EXISTS borrows_one_open_per_pair
			ON borrows (user_id, book_id)
			WHERE NOT returned`,
		`CREATE INDEX IF NOT EXISTS borrows_open_by_user
			ON borrows (user_id)
			WHERE NOT returned`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// Seed inserts the bootstrap administrator and sample catalog entries
// on first run. Existing rows are left untouched.
func Seed(ctx context.Context, db *sql.DB) error {
	var userCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&userCount); err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	if userCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash bootstrap password: %w", err)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO users (id, username, password_hash, is_admin)
			VALUES ($1, $2, $3, TRUE)
		`, uuid.New(), "admin", string(hash))
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		log.Printf("seeded bootstrap administrator %q", "admin")
	}

	var bookCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&bookCount); err != nil {
		return fmt.Errorf("count books: %w", err)
	}

	if bookCount == 0 {
		samples := []struct {
			title, author, isbn string
			available           int
		}{
			{"Wiedźmin", "Andrzej Sapkowski", "9788374697073", 5},
			{"Lalka", "Bolesław Prus", "9788324001234", 3},
			{"Solaris", "Stanisław Lem", "9788373928456", 2},
			{"Pan Tadeusz", "Adam Mickiewicz", "9788324005678", 4},
			{"Quo Vadis", "Henryk Sienkiewicz", "9788324008901", 3},
		}
		for _, s := range samples {
			_, err := db.ExecContext(ctx, `
				INSERT INTO books (id, title, author, available, isbn)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.New(), s.title, s.author, s.available, s.isbn)
			if err != nil {
				return fmt.Errorf("seed book %q: %w", s.title, err)
			}
		}
		log.Printf("seeded %d sample catalog entries", len(samples))
	}

	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation (code 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
