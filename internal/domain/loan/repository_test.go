package loan

import (
	"context"
	"library-api/internal/domain/book"
	"library-api/internal/pkg/pagination"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (_m *MockRepository) ExistsOpenLoanForBook(ctx context.Context, bookID int64) (bool, error) {
	ret := _m.Called(ctx, bookID)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockRepository) Save(ctx context.Context, loan *Loan) (*Loan, error) {
	ret := _m.Called(ctx, loan)

	var r0 *Loan
	if rf, ok := ret.Get(0).(func(context.Context, *Loan) *Loan); ok {
		r0 = rf(ctx, loan)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Loan)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) FindByID(ctx context.Context, id int64) (*Loan, error) {
	ret := _m.Called(ctx, id)

	var r0 *Loan
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Loan)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) FindByFilter(ctx context.Context, filter Filter, page pagination.Request) (pagination.Page[Loan], error) {
	ret := _m.Called(ctx, filter, page)
	return ret.Get(0).(pagination.Page[Loan]), ret.Error(1)
}

func (_m *MockRepository) FindByBook(ctx context.Context, bookID int64, page pagination.Request) (pagination.Page[Loan], error) {
	ret := _m.Called(ctx, bookID, page)
	return ret.Get(0).(pagination.Page[Loan]), ret.Error(1)
}

func (_m *MockRepository) FindOverdue(ctx context.Context, threshold time.Time) ([]Loan, error) {
	ret := _m.Called(ctx, threshold)

	var r0 []Loan
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]Loan)
	}

	return r0, ret.Error(1)
}

type MockBookFinder struct {
	mock.Mock
}

func (_m *MockBookFinder) GetByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	ret := _m.Called(ctx, isbn)

	var r0 *book.Book
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*book.Book)
	}

	return r0, ret.Error(1)
}
