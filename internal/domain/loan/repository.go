package loan

import (
	"context"
	"library-api/internal/pkg/pagination"
	"time"
)

type Repository interface {
	// ExistsOpenLoanForBook is true when a loan for the book is not returned.
	ExistsOpenLoanForBook(ctx context.Context, bookID int64) (bool, error)

	Save(ctx context.Context, loan *Loan) (*Loan, error)

	FindByID(ctx context.Context, id int64) (*Loan, error)

	FindByFilter(ctx context.Context, filter Filter, page pagination.Request) (pagination.Page[Loan], error)

	FindByBook(ctx context.Context, bookID int64, page pagination.Request) (pagination.Page[Loan], error)

	// FindOverdue returns open loans with a loan date before threshold.
	FindOverdue(ctx context.Context, threshold time.Time) ([]Loan, error)
}
