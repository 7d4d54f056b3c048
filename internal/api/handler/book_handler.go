package handler

import (
	"library-api/internal/api/handler/dto"
	"library-api/internal/domain/book"
	"library-api/internal/domain/loan"
	"log/slog"
	"net/http"
)

type BookHandler struct {
	books  book.BookService
	loans  loan.LoanService
	logger *slog.Logger
}

func NewBookHandler(books book.BookService, loans loan.LoanService, l *slog.Logger) *BookHandler {
	return &BookHandler{
		books:  books,
		loans:  loans,
		logger: l.With("component", "BookHandler"),
	}
}

// CreateBook registers a new book.
//
// @Summary Register a book
// @Description Registers a book in the catalog. The ISBN must not already be registered.
// @Tags Books
// @Accept json
// @Produce json
// @Param request body dto.CreateBookRequest true "Book payload"
// @Success 201 {object} dto.BookResponse "Book created"
// @Failure 400 {object} dto.ErrorResponse "Validation error or ISBN already registered"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/books [post]
// @Security BearerAuth
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBookRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	saved, err := h.books.Save(r.Context(), req.ToBook())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewBookResponse(saved))
}

// GetBook returns one book.
//
// @Summary Get a book
// @Tags Books
// @Produce json
// @Param bookID path int true "Book ID"
// @Success 200 {object} dto.BookResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid book ID"
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Router /api/books/{bookID} [get]
// @Security BearerAuth
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := idFromURL(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}

	b, err := h.books.GetByID(r.Context(), bookID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBookResponse(b))
}

// UpdateBook replaces the title and author of a book.
//
// @Summary Update a book
// @Tags Books
// @Accept json
// @Produce json
// @Param bookID path int true "Book ID"
// @Param request body dto.UpdateBookRequest true "New title and author"
// @Success 200 {object} dto.BookResponse
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Router /api/books/{bookID} [put]
// @Security BearerAuth
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := idFromURL(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.UpdateBookRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	current, err := h.books.GetByID(r.Context(), bookID)
	if err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.books.Update(r.Context(), req.ApplyTo(current))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBookResponse(updated))
}

// DeleteBook removes a book that has no loan history.
//
// @Summary Delete a book
// @Tags Books
// @Param bookID path int true "Book ID"
// @Success 204 "Book deleted"
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Failure 409 {object} dto.ErrorResponse "Book is referenced by loans"
// @Router /api/books/{bookID} [delete]
// @Security BearerAuth
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := idFromURL(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}

	b, err := h.books.GetByID(r.Context(), bookID)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.books.Delete(r.Context(), b); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// FindBooks lists books matching every provided field.
//
// @Summary Find books
// @Description Case-insensitive substring match on each provided field. No field returns every book.
// @Tags Books
// @Produce json
// @Param isbn query string false "ISBN fragment"
// @Param title query string false "Title fragment"
// @Param author query string false "Author fragment"
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.PageResponse[dto.BookResponse]
// @Failure 400 {object} dto.ErrorResponse "Invalid paging parameters"
// @Router /api/books [get]
// @Security BearerAuth
func (h *BookHandler) FindBooks(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	q := r.URL.Query()
	filter := book.Filter{
		ISBN:   q.Get("isbn"),
		Title:  q.Get("title"),
		Author: q.Get("author"),
	}

	result, err := h.books.Find(r.Context(), filter, page)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewPageResponse(result, func(b book.Book) dto.BookResponse {
		return dto.NewBookResponse(&b)
	}))
}

// FindLoansByBook lists the loan history of a book.
//
// @Summary Loans of a book
// @Tags Books
// @Produce json
// @Param bookID path int true "Book ID"
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.PageResponse[dto.LoanResponse]
// @Failure 404 {object} dto.ErrorResponse "Book not found"
// @Router /api/books/{bookID}/loans [get]
// @Security BearerAuth
func (h *BookHandler) FindLoansByBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := idFromURL(r, "bookID")
	if err != nil {
		respondError(w, err)
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if _, err := h.books.GetByID(r.Context(), bookID); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.loans.FindLoansByBook(r.Context(), bookID, page)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewPageResponse(result, func(l loan.Loan) dto.LoanResponse {
		return dto.NewLoanResponse(&l)
	}))
}
