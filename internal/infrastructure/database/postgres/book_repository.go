package postgres

import (
	"context"
	"errors"
	"fmt"
	"library-api/internal/domain/book"
	"library-api/internal/infrastructure/monitoring"
	"library-api/internal/pkg/apperrors"
	"library-api/internal/pkg/pagination"
	"log/slog"
	"os"
	"time"
)

const (
	existsBookByISBNQuery = `SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`

	insertBookQuery = `
        INSERT INTO books (isbn, title, author)
        VALUES ($1, $2, $3)
        RETURNING id`

	updateBookQuery = `
        UPDATE books
        SET title = $1,
            author = $2
        WHERE id = $3`

	findBookByIDQuery = `SELECT id, isbn, title, author FROM books WHERE id = $1`

	findBookByISBNQuery = `SELECT id, isbn, title, author FROM books WHERE isbn = $1`

	deleteBookQuery = `DELETE FROM books WHERE id = $1`
)

type BookRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ book.Repository = (*BookRepository)(nil)

func NewBookRepository(db DBPool, logger *slog.Logger) *BookRepository {
	if db == nil {
		panic("DBPool cannot be nil for BookRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewBookRepository, using default stderr handler")
	}
	return &BookRepository{
		db:     db,
		logger: logger.With("component", "BookRepository"),
	}
}

func (r *BookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	startTime := time.Now()

	var exists bool
	err := r.db.QueryRow(ctx, existsBookByISBNQuery, isbn).Scan(&exists)
	monitoring.RecordDBQuery("ExistsBookByISBN", queryStatus(err), time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to check isbn", slog.String("isbn", isbn), slog.Any("error", err))
		return false, apperrors.WrapDatabaseError(err, "failed to check book ISBN")
	}
	return exists, nil
}

func (r *BookRepository) Save(ctx context.Context, b *book.Book) (*book.Book, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: book cannot be nil", apperrors.ErrInvalidArgument)
	}

	if b.ID == 0 {
		return r.createBook(ctx, b)
	}
	return r.updateBook(ctx, b)
}

func (r *BookRepository) createBook(ctx context.Context, b *book.Book) (*book.Book, error) {
	r.logger.InfoContext(ctx, "Attempting to insert new book", slog.String("isbn", b.ISBN))
	startTime := time.Now()

	err := r.db.QueryRow(ctx, insertBookQuery, b.ISBN, b.Title, b.Author).Scan(&b.ID)
	monitoring.RecordDBQuery("InsertBook", queryStatus(err), time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert book due to unique constraint violation", slog.String("isbn", b.ISBN))
			return nil, translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert book", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to insert book")
	}

	r.logger.InfoContext(ctx, "Book inserted successfully", slog.Int64("bookID", b.ID))
	saved := *b
	return &saved, nil
}

func (r *BookRepository) updateBook(ctx context.Context, b *book.Book) (*book.Book, error) {
	r.logger.InfoContext(ctx, "Attempting to update book", slog.Int64("bookID", b.ID))
	startTime := time.Now()

	tag, err := r.db.Exec(ctx, updateBookQuery, b.Title, b.Author, b.ID)
	monitoring.RecordDBQuery("UpdateBook", queryStatus(err), time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update book", slog.Int64("bookID", b.ID), slog.Any("error", err))
		return nil, translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Book not found for update", slog.Int64("bookID", b.ID))
		return nil, apperrors.ErrNotFound
	}

	saved := *b
	return &saved, nil
}

func (r *BookRepository) FindByID(ctx context.Context, id int64) (*book.Book, error) {
	return r.findOne(ctx, "FindBookByID", findBookByIDQuery, id)
}

func (r *BookRepository) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	return r.findOne(ctx, "FindBookByISBN", findBookByISBNQuery, isbn)
}

func (r *BookRepository) findOne(ctx context.Context, queryName, query string, arg any) (*book.Book, error) {
	startTime := time.Now()

	var b book.Book
	err := r.db.QueryRow(ctx, query, arg).Scan(&b.ID, &b.ISBN, &b.Title, &b.Author)
	monitoring.RecordDBQuery(queryName, queryStatus(err), time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrNotFound) {
			r.logger.WarnContext(ctx, "Book not found", slog.String("query", queryName), slog.Any("key", arg))
		}
		return nil, translatedErr
	}
	return &b, nil
}

func (r *BookRepository) Delete(ctx context.Context, b *book.Book) error {
	if b == nil {
		return fmt.Errorf("%w: book cannot be nil", apperrors.ErrInvalidArgument)
	}
	startTime := time.Now()

	tag, err := r.db.Exec(ctx, deleteBookQuery, b.ID)
	monitoring.RecordDBQuery("DeleteBook", queryStatus(err), time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete book", slog.Int64("bookID", b.ID), slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Book deleted", slog.Int64("bookID", b.ID))
	return nil
}

func (r *BookRepository) Find(ctx context.Context, filter book.Filter, page pagination.Request) (pagination.Page[book.Book], error) {
	countSQL, countArgs, err := countBooksQuery(filter)
	if err != nil {
		return pagination.Page[book.Book]{}, apperrors.WrapDatabaseError(err, "failed to build book count query")
	}
	findSQL, findArgs, err := findBooksQuery(filter, page)
	if err != nil {
		return pagination.Page[book.Book]{}, apperrors.WrapDatabaseError(err, "failed to build book query")
	}

	startTime := time.Now()
	var total int64
	err = r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total)
	monitoring.RecordDBQuery("CountBooks", queryStatus(err), time.Since(startTime))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count books", slog.Any("error", err))
		return pagination.Page[book.Book]{}, apperrors.WrapDatabaseError(err, "failed to count books")
	}

	startTime = time.Now()
	rows, err := r.db.Query(ctx, findSQL, findArgs...)
	if err != nil {
		monitoring.RecordDBQuery("FindBooks", statusError, time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query books", slog.Any("error", err))
		return pagination.Page[book.Book]{}, apperrors.WrapDatabaseError(err, "failed to query books")
	}
	defer rows.Close()

	books := make([]book.Book, 0, page.Size)
	for rows.Next() {
		var b book.Book
		if err := rows.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan book row", slog.Any("error", err))
			return pagination.Page[book.Book]{}, apperrors.WrapDatabaseError(err, "failed to scan book row")
		}
		books = append(books, b)
	}
	err = rows.Err()
	monitoring.RecordDBQuery("FindBooks", queryStatus(err), time.Since(startTime))
	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating book rows", slog.Any("error", err))
		return pagination.Page[book.Book]{}, apperrors.WrapDatabaseError(err, "failed to iterate book rows")
	}

	return pagination.NewPage(books, page, total), nil
}
