package dto

import (
	"library-api/internal/domain/book"
	"strings"
)

type CreateBookRequest struct {
	ISBN   string `json:"isbn" validate:"required,max=32"`
	Title  string `json:"title" validate:"required,max=255"`
	Author string `json:"author" validate:"required,max=255"`
}

func (r *CreateBookRequest) Normalize() {
	r.ISBN = strings.TrimSpace(r.ISBN)
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
}

func (r *CreateBookRequest) ToBook() *book.Book {
	return &book.Book{
		ISBN:   r.ISBN,
		Title:  r.Title,
		Author: r.Author,
	}
}

// UpdateBookRequest replaces title and author. The ISBN is immutable.
type UpdateBookRequest struct {
	Title  string `json:"title" validate:"required,max=255"`
	Author string `json:"author" validate:"required,max=255"`
}

func (r *UpdateBookRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
}

func (r *UpdateBookRequest) ApplyTo(b *book.Book) *book.Book {
	updated := *b
	updated.Title = r.Title
	updated.Author = r.Author
	return &updated
}

type BookResponse struct {
	ID     int64  `json:"id"`
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

func NewBookResponse(b *book.Book) BookResponse {
	return BookResponse{
		ID:     b.ID,
		ISBN:   b.ISBN,
		Title:  b.Title,
		Author: b.Author,
	}
}
