package book

import (
	"context"
	"library-api/internal/pkg/pagination"
)

type Repository interface {
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)

	// Save inserts the book when its ID is zero and updates it otherwise.
	Save(ctx context.Context, book *Book) (*Book, error)

	FindByID(ctx context.Context, id int64) (*Book, error)

	FindByISBN(ctx context.Context, isbn string) (*Book, error)

	Delete(ctx context.Context, book *Book) error

	Find(ctx context.Context, filter Filter, page pagination.Request) (pagination.Page[Book], error)
}
