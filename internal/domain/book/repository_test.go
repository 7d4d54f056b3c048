package book

import (
	"context"
	"library-api/internal/pkg/pagination"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (_m *MockRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	ret := _m.Called(ctx, isbn)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockRepository) Save(ctx context.Context, book *Book) (*Book, error) {
	ret := _m.Called(ctx, book)

	var r0 *Book
	if rf, ok := ret.Get(0).(func(context.Context, *Book) *Book); ok {
		r0 = rf(ctx, book)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Book)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) FindByID(ctx context.Context, id int64) (*Book, error) {
	ret := _m.Called(ctx, id)

	var r0 *Book
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Book)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) FindByISBN(ctx context.Context, isbn string) (*Book, error) {
	ret := _m.Called(ctx, isbn)

	var r0 *Book
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Book)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) Delete(ctx context.Context, book *Book) error {
	ret := _m.Called(ctx, book)
	return ret.Error(0)
}

func (_m *MockRepository) Find(ctx context.Context, filter Filter, page pagination.Request) (pagination.Page[Book], error) {
	ret := _m.Called(ctx, filter, page)
	return ret.Get(0).(pagination.Page[Book]), ret.Error(1)
}
