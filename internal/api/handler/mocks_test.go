package handler

import (
	"context"
	"io"
	"library-api/internal/domain/book"
	"library-api/internal/domain/loan"
	"library-api/internal/pkg/pagination"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockBookService struct {
	mock.Mock
}

func (m *MockBookService) Save(ctx context.Context, b *book.Book) (*book.Book, error) {
	args := m.Called(ctx, b)
	if saved, ok := args.Get(0).(*book.Book); ok {
		return saved, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookService) GetByID(ctx context.Context, id int64) (*book.Book, error) {
	args := m.Called(ctx, id)
	if b, ok := args.Get(0).(*book.Book); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookService) GetByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	args := m.Called(ctx, isbn)
	if b, ok := args.Get(0).(*book.Book); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookService) Update(ctx context.Context, b *book.Book) (*book.Book, error) {
	args := m.Called(ctx, b)
	if updated, ok := args.Get(0).(*book.Book); ok {
		return updated, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookService) Delete(ctx context.Context, b *book.Book) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookService) Find(ctx context.Context, filter book.Filter, page pagination.Request) (pagination.Page[book.Book], error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).(pagination.Page[book.Book]), args.Error(1)
}

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, isbn, customer, customerEmail string) (*loan.Loan, error) {
	args := m.Called(ctx, isbn, customer, customerEmail)
	if created, ok := args.Get(0).(*loan.Loan); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ReturnLoan(ctx context.Context, loanID int64, returned bool) (*loan.Loan, error) {
	args := m.Called(ctx, loanID, returned)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) FindLoans(ctx context.Context, filter loan.Filter, page pagination.Request) (pagination.Page[loan.Loan], error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).(pagination.Page[loan.Loan]), args.Error(1)
}

func (m *MockLoanService) FindLoansByBook(ctx context.Context, bookID int64, page pagination.Request) (pagination.Page[loan.Loan], error) {
	args := m.Called(ctx, bookID, page)
	return args.Get(0).(pagination.Page[loan.Loan]), args.Error(1)
}

func (m *MockLoanService) GetOverdueLoans(ctx context.Context, asOf time.Time) ([]loan.Loan, error) {
	args := m.Called(ctx, asOf)
	if loans, ok := args.Get(0).([]loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{key}, Values: []string{value}},
	}))
}
