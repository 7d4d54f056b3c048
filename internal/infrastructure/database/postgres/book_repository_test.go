package postgres

import (
	"context"
	"errors"
	"io"
	"library-api/internal/domain/book"
	"library-api/internal/pkg/apperrors"
	"library-api/internal/pkg/pagination"
	"log/slog"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pgxmockExpectationsNotMetMsg = "there were unfulfilled expectations"

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

var bookColumns = []string{"id", "isbn", "title", "author"}

func setupBookRepo(t *testing.T) (context.Context, *BookRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	return context.Background(), NewBookRepository(mockPool, logger), mockPool
}

func TestBookRepository_ExistsByISBN(t *testing.T) {
	ctx, repo, mockPool := setupBookRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(existsBookByISBNQuery)).
		WithArgs("123").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByISBN(ctx, "123")

	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestBookRepository_SaveNewBook(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()
		input := &book.Book{ISBN: "123", Title: "As aventuras", Author: "Fulano"}

		mockPool.ExpectQuery(regexp.QuoteMeta(insertBookQuery)).
			WithArgs("123", "As aventuras", "Fulano").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

		saved, err := repo.Save(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, int64(1), saved.ID)
		assert.Equal(t, "123", saved.ISBN)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("Unique violation", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()

		mockPool.ExpectQuery(regexp.QuoteMeta(insertBookQuery)).
			WithArgs("123", "", "").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "books_isbn_key"})

		saved, err := repo.Save(ctx, &book.Book{ISBN: "123"})

		assert.Nil(t, saved)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("Nil book", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()

		_, err := repo.Save(ctx, nil)

		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	})
}

func TestBookRepository_SaveExistingBook(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()
		input := &book.Book{ID: 1, ISBN: "123", Title: "New title", Author: "New author"}

		mockPool.ExpectExec(regexp.QuoteMeta(updateBookQuery)).
			WithArgs("New title", "New author", int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		saved, err := repo.Save(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, *input, *saved)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("Missing row", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()

		mockPool.ExpectExec(regexp.QuoteMeta(updateBookQuery)).
			WithArgs("t", "a", int64(9)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		_, err := repo.Save(ctx, &book.Book{ID: 9, Title: "t", Author: "a"})

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestBookRepository_FindByID(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()

		mockPool.ExpectQuery(regexp.QuoteMeta(findBookByIDQuery)).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows(bookColumns).AddRow(int64(1), "123", "As aventuras", "Fulano"))

		b, err := repo.FindByID(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, &book.Book{ID: 1, ISBN: "123", Title: "As aventuras", Author: "Fulano"}, b)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("Not found", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()

		mockPool.ExpectQuery(regexp.QuoteMeta(findBookByIDQuery)).
			WithArgs(int64(1)).
			WillReturnError(pgx.ErrNoRows)

		b, err := repo.FindByID(ctx, 1)

		assert.Nil(t, b)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestBookRepository_FindByISBN(t *testing.T) {
	ctx, repo, mockPool := setupBookRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(findBookByISBNQuery)).
		WithArgs("123").
		WillReturnRows(pgxmock.NewRows(bookColumns).AddRow(int64(4), "123", "As aventuras", "Fulano"))

	b, err := repo.FindByISBN(ctx, "123")

	require.NoError(t, err)
	assert.Equal(t, int64(4), b.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestBookRepository_Delete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()

		mockPool.ExpectExec(regexp.QuoteMeta(deleteBookQuery)).
			WithArgs(int64(1)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(ctx, &book.Book{ID: 1}))
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("Book still referenced by loans", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()

		mockPool.ExpectExec(regexp.QuoteMeta(deleteBookQuery)).
			WithArgs(int64(1)).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "loans_book_id_fkey"})

		assert.ErrorIs(t, repo.Delete(ctx, &book.Book{ID: 1}), apperrors.ErrConflict)
	})
}

func TestBookRepository_Find(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()
		filter := book.Filter{Title: "aventuras"}
		page := pagination.NewRequest(0, 10)

		countSQL, countArgs, err := countBooksQuery(filter)
		require.NoError(t, err)
		findSQL, findArgs, err := findBooksQuery(filter, page)
		require.NoError(t, err)

		mockPool.ExpectQuery(regexp.QuoteMeta(countSQL)).
			WithArgs(countArgs...).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
		mockPool.ExpectQuery(regexp.QuoteMeta(findSQL)).
			WithArgs(findArgs...).
			WillReturnRows(pgxmock.NewRows(bookColumns).AddRow(int64(1), "123", "As aventuras", "Fulano"))

		result, err := repo.Find(ctx, filter, page)

		require.NoError(t, err)
		assert.Equal(t, int64(1), result.TotalElements)
		assert.Equal(t, 10, result.Size)
		require.Len(t, result.Content, 1)
		assert.Equal(t, "As aventuras", result.Content[0].Title)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("Count failure", func(t *testing.T) {
		ctx, repo, mockPool := setupBookRepo(t)
		defer mockPool.Close()

		countSQL, _, err := countBooksQuery(book.Filter{})
		require.NoError(t, err)

		mockPool.ExpectQuery(regexp.QuoteMeta(countSQL)).
			WillReturnError(errors.New("connection reset"))

		_, err = repo.Find(ctx, book.Filter{}, pagination.NewRequest(0, 10))

		assert.ErrorIs(t, err, apperrors.ErrDatabase)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "[DB_ERROR] failed to count books", appErr.Error())
	})
}
