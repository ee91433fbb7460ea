// internal/catalog/implementation_test.go
package catalog

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtrack/internal/liberr"
	"libtrack/internal/membership"
)

func newTestService(t *testing.T) (Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	return NewService(db), mock
}

func adminActor() membership.Identity {
	return membership.Identity{UserID: uuid.New(), Username: "admin", IsAdmin: true}
}

func readerActor() membership.Identity {
	return membership.Identity{UserID: uuid.New(), Username: "reader", IsAdmin: false}
}

func expectBookRowLock(mock sqlmock.Sqlmock, bookID uuid.UUID) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM books WHERE id = $1 FOR UPDATE")).
		WithArgs(bookID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(bookID))
}

func bookColumns() []string {
	return []string{"id", "title", "author", "added_at", "available", "last_edited_at", "isbn"}
}

func TestAddBook(t *testing.T) {
	t.Run("requires admin", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.AddBook(context.Background(), readerActor(), "Lalka", "Bolesław Prus", "3", "")
		require.ErrorIs(t, err, liberr.ErrUnauthorized)
	})

	t.Run("stores the normalized ISBN", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO books")).
			WithArgs(sqlmock.AnyArg(), "Wiedźmin", "Andrzej Sapkowski", sqlmock.AnyArg(), 5, sqlmock.AnyArg(), "9788374697073").
			WillReturnResult(sqlmock.NewResult(0, 1))

		book, err := svc.AddBook(context.Background(), adminActor(), "Wiedźmin", "Andrzej Sapkowski", "5", "978-83-7469-707-3")
		require.NoError(t, err)
		assert.Equal(t, "9788374697073", book.ISBN)
		assert.Equal(t, 5, book.Available)
	})

	t.Run("duplicate ISBN conflicts", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO books")).
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := svc.AddBook(context.Background(), adminActor(), "Wiedźmin", "Andrzej Sapkowski", "5", "9788374697073")
		require.ErrorIs(t, err, liberr.ErrConflict)
	})

	t.Run("rejects invalid fields without touching storage", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.AddBook(context.Background(), adminActor(), "", "Author", "1", "")
		require.ErrorIs(t, err, liberr.ErrInvalidInput)
	})
}

func TestDeleteBook(t *testing.T) {
	t.Run("refuses while copies are on loan", func(t *testing.T) {
		svc, mock := newTestService(t)
		bookID := uuid.New()

		mock.ExpectBegin()
		expectBookRowLock(mock, bookID)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM borrows WHERE book_id = $1 AND NOT returned")).
			WithArgs(bookID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		err := svc.DeleteBook(context.Background(), adminActor(), bookID)
		require.ErrorIs(t, err, liberr.ErrConflict)
	})

	t.Run("deletes an idle entry", func(t *testing.T) {
		svc, mock := newTestService(t)
		bookID := uuid.New()

		mock.ExpectBegin()
		expectBookRowLock(mock, bookID)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM borrows WHERE book_id = $1 AND NOT returned")).
			WithArgs(bookID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM books WHERE id = $1")).
			WithArgs(bookID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := svc.DeleteBook(context.Background(), adminActor(), bookID)
		require.NoError(t, err)
	})

	t.Run("missing entry reports not found", func(t *testing.T) {
		svc, mock := newTestService(t)
		bookID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM books WHERE id = $1 FOR UPDATE")).
			WithArgs(bookID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err := svc.DeleteBook(context.Background(), adminActor(), bookID)
		require.ErrorIs(t, err, liberr.ErrNotFound)
	})

	t.Run("requires admin", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.DeleteBook(context.Background(), readerActor(), uuid.New())
		require.ErrorIs(t, err, liberr.ErrUnauthorized)
	})
}

func TestSearch(t *testing.T) {
	now := time.Now().UTC()

	t.Run("empty query lists the whole catalog", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY title")).
			WillReturnRows(sqlmock.NewRows(bookColumns()).
				AddRow(uuid.New(), "Lalka", "Bolesław Prus", now, 3, now, "9788324001234").
				AddRow(uuid.New(), "Solaris", "Stanisław Lem", now, 2, now, nil))

		books, err := svc.Search(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.Equal(t, "9788324001234", books[0].ISBN)
		assert.Empty(t, books[1].ISBN)
	})

	t.Run("query matches title, author or ISBN", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE title ILIKE $1 OR author ILIKE $1 OR isbn ILIKE $1")).
			WithArgs("%lem%").
			WillReturnRows(sqlmock.NewRows(bookColumns()).
				AddRow(uuid.New(), "Solaris", "Stanisław Lem", now, 2, now, nil))

		books, err := svc.Search(context.Background(), "lem")
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Solaris", books[0].Title)
	})
}

func TestPopular(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY borrow_count DESC")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "borrow_count"}).
			AddRow(uuid.New(), "Wiedźmin", "Andrzej Sapkowski", 12).
			AddRow(uuid.New(), "Lalka", "Bolesław Prus", 4))

	books, err := svc.Popular(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, 12, books[0].BorrowCount)
}
