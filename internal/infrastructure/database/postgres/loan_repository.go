package postgres

import (
	"context"
	"errors"
	"fmt"
	"library-api/internal/domain/loan"
	"library-api/internal/infrastructure/monitoring"
	"library-api/internal/pkg/apperrors"
	"library-api/internal/pkg/pagination"
	"log/slog"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9/exp"
)

const (
	existsOpenLoanForBookQuery = `SELECT EXISTS (SELECT 1 FROM loans WHERE book_id = $1 AND returned IS NOT TRUE)`

	insertLoanQuery = `
        INSERT INTO loans (book_id, customer, customer_email, loan_date, returned, return_date)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`

	updateLoanQuery = `
        UPDATE loans
        SET returned = $1,
            return_date = $2
        WHERE id = $3`

	selectLoanColumns = `
        SELECT l.id, l.customer, l.customer_email, l.loan_date, l.returned, l.return_date,
               b.id, b.isbn, b.title, b.author
        FROM loans l
        JOIN books b ON b.id = l.book_id`

	findLoanByIDQuery = selectLoanColumns + `
        WHERE l.id = $1`

	findOverdueLoansQuery = selectLoanColumns + `
        WHERE l.loan_date < $1 AND l.returned IS NOT TRUE
        ORDER BY l.loan_date ASC, l.id ASC`
)

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	if db == nil {
		panic("DBPool cannot be nil for LoanRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewLoanRepository, using default stderr handler")
	}
	return &LoanRepository{
		db:     db,
		logger: logger.With("component", "LoanRepository"),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.Customer, &l.CustomerEmail, &l.LoanDate, &l.Returned, &l.ReturnDate,
		&l.Book.ID, &l.Book.ISBN, &l.Book.Title, &l.Book.Author,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) ExistsOpenLoanForBook(ctx context.Context, bookID int64) (bool, error) {
	startTime := time.Now()

	var exists bool
	err := r.db.QueryRow(ctx, existsOpenLoanForBookQuery, bookID).Scan(&exists)
	monitoring.RecordDBQuery("ExistsOpenLoanForBook", queryStatus(err), time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to check open loans", slog.Int64("bookID", bookID), slog.Any("error", err))
		return false, apperrors.WrapDatabaseError(err, "failed to check open loans for book")
	}
	return exists, nil
}

func (r *LoanRepository) Save(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: loan cannot be nil", apperrors.ErrInvalidArgument)
	}

	if l.ID == 0 {
		return r.createLoan(ctx, l)
	}
	return r.updateLoan(ctx, l)
}

func (r *LoanRepository) createLoan(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	r.logger.InfoContext(ctx, "Attempting to insert new loan", slog.Int64("bookID", l.Book.ID))
	startTime := time.Now()

	err := r.db.QueryRow(ctx, insertLoanQuery,
		l.Book.ID,
		l.Customer,
		l.CustomerEmail,
		l.LoanDate,
		l.Returned,
		l.ReturnDate,
	).Scan(&l.ID)
	monitoring.RecordDBQuery("InsertLoan", queryStatus(err), time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert loan, book already has an open loan", slog.Int64("bookID", l.Book.ID))
			return nil, translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert loan", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to insert loan")
	}

	r.logger.InfoContext(ctx, "Loan inserted successfully", slog.Int64("loanID", l.ID))
	saved := *l
	return &saved, nil
}

func (r *LoanRepository) updateLoan(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	startTime := time.Now()

	tag, err := r.db.Exec(ctx, updateLoanQuery, l.Returned, l.ReturnDate, l.ID)
	monitoring.RecordDBQuery("UpdateLoan", queryStatus(err), time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", slog.Int64("loanID", l.ID), slog.Any("error", err))
		return nil, translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Loan not found for update", slog.Int64("loanID", l.ID))
		return nil, apperrors.ErrNotFound
	}

	saved := *l
	return &saved, nil
}

func (r *LoanRepository) FindByID(ctx context.Context, id int64) (*loan.Loan, error) {
	startTime := time.Now()

	l, err := scanLoan(r.db.QueryRow(ctx, findLoanByIDQuery, id))
	monitoring.RecordDBQuery("FindLoanByID", queryStatus(err), time.Since(startTime))

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrNotFound) {
			r.logger.WarnContext(ctx, "Loan not found", slog.Int64("loanID", id))
		}
		return nil, translatedErr
	}
	return l, nil
}

func (r *LoanRepository) FindByFilter(ctx context.Context, filter loan.Filter, page pagination.Request) (pagination.Page[loan.Loan], error) {
	return r.findPage(ctx, "FindLoansByFilter", loanFilterExpressions(filter), page)
}

func (r *LoanRepository) FindByBook(ctx context.Context, bookID int64, page pagination.Request) (pagination.Page[loan.Loan], error) {
	return r.findPage(ctx, "FindLoansByBook", loansByBookExpressions(bookID), page)
}

func (r *LoanRepository) findPage(ctx context.Context, queryName string, where []exp.Expression, page pagination.Request) (pagination.Page[loan.Loan], error) {
	countSQL, countArgs, err := countLoansQuery(where)
	if err != nil {
		return pagination.Page[loan.Loan]{}, apperrors.WrapDatabaseError(err, "failed to build loan count query")
	}
	findSQL, findArgs, err := findLoansQuery(where, page)
	if err != nil {
		return pagination.Page[loan.Loan]{}, apperrors.WrapDatabaseError(err, "failed to build loan query")
	}

	startTime := time.Now()
	var total int64
	err = r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total)
	monitoring.RecordDBQuery("Count"+queryName, queryStatus(err), time.Since(startTime))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count loans", slog.String("query", queryName), slog.Any("error", err))
		return pagination.Page[loan.Loan]{}, apperrors.WrapDatabaseError(err, "failed to count loans")
	}

	loans, err := r.queryLoans(ctx, queryName, findSQL, findArgs...)
	if err != nil {
		return pagination.Page[loan.Loan]{}, err
	}
	return pagination.NewPage(loans, page, total), nil
}

func (r *LoanRepository) FindOverdue(ctx context.Context, threshold time.Time) ([]loan.Loan, error) {
	return r.queryLoans(ctx, "FindOverdueLoans", findOverdueLoansQuery, threshold)
}

func (r *LoanRepository) queryLoans(ctx context.Context, queryName, query string, args ...any) ([]loan.Loan, error) {
	startTime := time.Now()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		monitoring.RecordDBQuery(queryName, statusError, time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query loans", slog.String("query", queryName), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to query loans")
	}
	defer rows.Close()

	loans := make([]loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", slog.String("query", queryName), slog.Any("error", err))
			return nil, apperrors.WrapDatabaseError(err, "failed to scan loan row")
		}
		loans = append(loans, *l)
	}
	err = rows.Err()
	monitoring.RecordDBQuery(queryName, queryStatus(err), time.Since(startTime))
	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", slog.String("query", queryName), slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to iterate loan rows")
	}

	return loans, nil
}
