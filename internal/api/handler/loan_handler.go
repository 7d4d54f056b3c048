package handler

import (
	"library-api/internal/api/handler/dto"
	mw "library-api/internal/api/middleware"
	"library-api/internal/domain/loan"
	"log/slog"
	"net/http"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

// CreateLoan lends a book to a customer.
//
// @Summary Create a loan
// @Description Lends the book with the given ISBN. Fails when the book already has an open loan.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan request"
// @Success 201 {object} dto.CreateLoanResponse "Loan created"
// @Failure 400 {object} dto.ErrorResponse "Validation error or book already loaned"
// @Failure 404 {object} dto.ErrorResponse "No book with that ISBN"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan requested", "isbn", req.ISBN, "requested_by", mw.SubjectFromContext(r.Context()))
	created, err := h.service.CreateLoan(r.Context(), req.ISBN, req.Customer, req.Email)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.CreateLoanResponse{ID: created.ID})
}

// GetLoan returns one loan with its book.
//
// @Summary Get a loan
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /api/loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	l, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l))
}

// ReturnLoan sets the returned flag of a loan.
//
// @Summary Return a loan
// @Description Sets the returned flag. Setting it again with the same value is harmless.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.ReturnLoanRequest true "Returned flag"
// @Success 200 {object} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /api/loans/{loanID} [patch]
// @Security BearerAuth
func (h *LoanHandler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.ReturnLoanRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.service.ReturnLoan(r.Context(), loanID, *req.Returned)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(updated))
}

// FindLoans lists loans whose book ISBN or customer matches.
//
// @Summary Find loans
// @Description Returns loans matching the ISBN or the customer. No parameter returns every loan.
// @Tags Loans
// @Produce json
// @Param isbn query string false "Exact ISBN"
// @Param customer query string false "Exact customer"
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.PageResponse[dto.LoanResponse]
// @Failure 400 {object} dto.ErrorResponse "Invalid paging parameters"
// @Router /api/loans [get]
// @Security BearerAuth
func (h *LoanHandler) FindLoans(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}

	q := r.URL.Query()
	filter := loan.Filter{ISBN: q.Get("isbn"), Customer: q.Get("customer")}

	result, err := h.service.FindLoans(r.Context(), filter, page)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewPageResponse(result, func(l loan.Loan) dto.LoanResponse {
		return dto.NewLoanResponse(&l)
	}))
}
