package loan

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
	"strings"
	"time"
)

const ErrMsgBookAlreadyLoaned = "book already loaned"

// BookFinder resolves the book a loan request refers to.
type BookFinder interface {
	GetByISBN(ctx context.Context, isbn string) (*book.Book, error)
}

type LoanService interface {
	CreateLoan(ctx context.Context, isbn, customer, customerEmail string) (*Loan, error)

	ReturnLoan(ctx context.Context, loanID int64, returned bool) (*Loan, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	FindLoans(ctx context.Context, filter Filter, page pagination.Request) (pagination.Page[Loan], error)

	FindLoansByBook(ctx context.Context, bookID int64, page pagination.Request) (pagination.Page[Loan], error)

	GetOverdueLoans(ctx context.Context, asOf time.Time) ([]Loan, error)
}

var _ LoanService = (*loanServiceImpl)(nil)

type loanServiceImpl struct {
	repo   Repository
	books  BookFinder
	now    func() time.Time
	logger *slog.Logger
}

// NewLoanService wires the loan lifecycle. A nil clock defaults to time.Now.
func NewLoanService(r Repository, books BookFinder, clock func() time.Time, logger *slog.Logger) LoanService {
	if r == nil {
		panic("loan repository cannot be nil")
	}
	if books == nil {
		panic("book finder cannot be nil")
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewLoanService, using default stderr handler")
	}
	return &loanServiceImpl{
		repo:   r,
		books:  books,
		now:    clock,
		logger: logger.With(slog.String("component", "loanService")),
	}
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, isbn, customer, customerEmail string) (*Loan, error) {
	logger := s.logger.With(slog.String("isbn", isbn), slog.String("customer", customer))
	logger.InfoContext(ctx, "Creating new loan")

	b, err := s.books.GetByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Book not found for loan request")
			return nil, fmt.Errorf("%w: book not found for isbn %s", apperrors.ErrNotFound, isbn)
		}
		logger.ErrorContext(ctx, "Failed to look up book for loan", slog.Any("error", err))
		return nil, fmt.Errorf("failed to look up book %s: %w", isbn, err)
	}

	open, err := s.repo.ExistsOpenLoanForBook(ctx, b.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to check open loans for book", slog.Any("error", err))
		return nil, fmt.Errorf("failed to check open loans for book %d: %w", b.ID, err)
	}
	if open {
		logger.WarnContext(ctx, "Book already has an open loan", slog.Int64("bookID", b.ID))
		monitoring.RecordRuleRejected("book_already_loaned")
		return nil, apperrors.NewBusinessRuleError(ErrMsgBookAlreadyLoaned)
	}

	saved, err := s.repo.Save(ctx, NewLoan(*b, customer, customerEmail, s.now()))
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			logger.WarnContext(ctx, "Concurrent loan for book rejected by store", slog.Int64("bookID", b.ID))
			monitoring.RecordRuleRejected("book_already_loaned")
			return nil, apperrors.NewBusinessRuleError(ErrMsgBookAlreadyLoaned)
		}
		logger.ErrorContext(ctx, "Failed to save new loan", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}

	monitoring.RecordLoanCreated()
	logger.InfoContext(ctx, "Loan created", slog.Int64("loanID", saved.ID))
	return saved, nil
}

func (s *loanServiceImpl) ReturnLoan(ctx context.Context, loanID int64, returned bool) (*Loan, error) {
	logger := s.logger.With(slog.Int64("loanID", loanID), slog.Bool("returned", returned))

	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	loan.MarkReturned(returned, s.now())
	updated, err := s.repo.Save(ctx, loan)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist loan return", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update loan %d: %w", loanID, err)
	}

	if returned {
		monitoring.RecordLoanReturned()
	}
	logger.InfoContext(ctx, "Loan return recorded")
	return updated, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	loan, err := s.repo.FindByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", slog.Int64("loanID", loanID))
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", slog.Int64("loanID", loanID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get loan %d: %w", loanID, err)
	}
	return loan, nil
}

func (s *loanServiceImpl) FindLoans(ctx context.Context, filter Filter, page pagination.Request) (pagination.Page[Loan], error) {
	filter = Filter{ISBN: strings.TrimSpace(filter.ISBN), Customer: strings.TrimSpace(filter.Customer)}

	result, err := s.repo.FindByFilter(ctx, filter, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to find loans", slog.Any("error", err))
		return pagination.Page[Loan]{}, fmt.Errorf("failed to find loans: %w", err)
	}
	return result, nil
}

func (s *loanServiceImpl) FindLoansByBook(ctx context.Context, bookID int64, page pagination.Request) (pagination.Page[Loan], error) {
	result, err := s.repo.FindByBook(ctx, bookID, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to find loans for book", slog.Int64("bookID", bookID), slog.Any("error", err))
		return pagination.Page[Loan]{}, fmt.Errorf("failed to find loans for book %d: %w", bookID, err)
	}
	return result, nil
}

func (s *loanServiceImpl) GetOverdueLoans(ctx context.Context, asOf time.Time) ([]Loan, error) {
	threshold := OverdueThreshold(asOf)
	loans, err := s.repo.FindOverdue(ctx, threshold)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to scan overdue loans", slog.Time("threshold", threshold), slog.Any("error", err))
		return nil, fmt.Errorf("failed to find overdue loans: %w", err)
	}
	s.logger.InfoContext(ctx, "Overdue scan complete", slog.Time("threshold", threshold), slog.Int("count", len(loans)))
	return loans, nil
}
