package book

import (
	"context"
	"errors"
	"fmt"
	"library-api/internal/infrastructure/monitoring"
	"library-api/internal/pkg/apperrors"
	"library-api/internal/pkg/pagination"
	"log/slog"
	"os"
)

const ErrMsgISBNAlreadyRegistered = "isbn already registered"

type BookService interface {
	Save(ctx context.Context, book *Book) (*Book, error)
	GetByID(ctx context.Context, id int64) (*Book, error)
	GetByISBN(ctx context.Context, isbn string) (*Book, error)
	Update(ctx context.Context, book *Book) (*Book, error)
	Delete(ctx context.Context, book *Book) error
	Find(ctx context.Context, filter Filter, page pagination.Request) (pagination.Page[Book], error)
}

var _ BookService = (*bookService)(nil)

type bookService struct {
	repo   Repository
	logger *slog.Logger
}

func NewBookService(repo Repository, logger *slog.Logger) BookService {
	if repo == nil {
		panic("book repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewBookService, using default stderr handler")
	}

	return &bookService{
		repo:   repo,
		logger: logger.With(slog.String("component", "bookService")),
	}
}

func (s *bookService) Save(ctx context.Context, book *Book) (*Book, error) {
	if book == nil {
		return nil, apperrors.NewInvariantViolation("book cannot be nil")
	}
	logger := s.logger.With(slog.String("isbn", book.ISBN))
	logger.InfoContext(ctx, "Attempting to save new book")

	exists, err := s.repo.ExistsByISBN(ctx, book.ISBN)
	if err != nil {
		logger.ErrorContext(ctx, "Repository error checking isbn", slog.Any("error", err))
		return nil, fmt.Errorf("failed to check isbn %s: %w", book.ISBN, err)
	}
	if exists {
		logger.WarnContext(ctx, "Rejected book with duplicate isbn")
		monitoring.RecordRuleRejected("isbn_already_registered")
		return nil, apperrors.NewBusinessRuleError(ErrMsgISBNAlreadyRegistered)
	}

	saved, err := s.repo.Save(ctx, book)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			logger.WarnContext(ctx, "Concurrent insert with same isbn rejected by store")
			monitoring.RecordRuleRejected("isbn_already_registered")
			return nil, apperrors.NewBusinessRuleError(ErrMsgISBNAlreadyRegistered)
		}
		logger.ErrorContext(ctx, "Repository failed to save new book", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save book: %w", err)
	}

	monitoring.RecordBookCreated()
	logger.InfoContext(ctx, "Successfully saved new book", slog.Int64("bookID", saved.ID))
	return saved, nil
}

func (s *bookService) GetByID(ctx context.Context, id int64) (*Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Book not found by repository", slog.Int64("bookID", id))
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Repository error finding book", slog.Int64("bookID", id), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get book %d: %w", id, err)
	}
	return book, nil
}

func (s *bookService) GetByISBN(ctx context.Context, isbn string) (*Book, error) {
	book, err := s.repo.FindByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Book not found by isbn", slog.String("isbn", isbn))
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Repository error finding book by isbn", slog.String("isbn", isbn), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get book by isbn %s: %w", isbn, err)
	}
	return book, nil
}

func (s *bookService) Update(ctx context.Context, book *Book) (*Book, error) {
	if book == nil || book.ID == 0 {
		s.logger.ErrorContext(ctx, "Update called without a persisted book")
		return nil, apperrors.NewInvariantViolation("book id cannot be empty on update")
	}

	updated, err := s.repo.Save(ctx, book)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to update book", slog.Int64("bookID", book.ID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to update book %d: %w", book.ID, err)
	}

	s.logger.InfoContext(ctx, "Successfully updated book", slog.Int64("bookID", updated.ID))
	return updated, nil
}

func (s *bookService) Delete(ctx context.Context, book *Book) error {
	if book == nil || book.ID == 0 {
		s.logger.ErrorContext(ctx, "Delete called without a persisted book")
		return apperrors.NewInvariantViolation("book id cannot be empty on delete")
	}

	if err := s.repo.Delete(ctx, book); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to delete book", slog.Int64("bookID", book.ID), slog.Any("error", err))
		return fmt.Errorf("failed to delete book %d: %w", book.ID, err)
	}

	s.logger.InfoContext(ctx, "Successfully deleted book", slog.Int64("bookID", book.ID))
	return nil
}

func (s *bookService) Find(ctx context.Context, filter Filter, page pagination.Request) (pagination.Page[Book], error) {
	result, err := s.repo.Find(ctx, filter.Normalize(), page)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error finding books", slog.Any("error", err))
		return pagination.Page[Book]{}, fmt.Errorf("failed to find books: %w", err)
	}
	return result, nil
}
