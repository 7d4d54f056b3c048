package dto

import (
	"library-api/internal/domain/loan"
	"strings"
	"time"
)

const dateLayout = time.DateOnly

type CreateLoanRequest struct {
	ISBN     string `json:"isbn" validate:"required"`
	Customer string `json:"customer" validate:"required,max=255"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func (r *CreateLoanRequest) Normalize() {
	r.ISBN = strings.TrimSpace(r.ISBN)
	r.Customer = strings.TrimSpace(r.Customer)
	r.Email = strings.TrimSpace(r.Email)
}

type CreateLoanResponse struct {
	ID int64 `json:"id"`
}

// ReturnLoanRequest uses a pointer so an omitted flag fails validation
// instead of reading as false.
type ReturnLoanRequest struct {
	Returned *bool `json:"returned" validate:"required"`
}

type LoanResponse struct {
	ID            int64        `json:"id"`
	Customer      string       `json:"customer"`
	CustomerEmail string       `json:"email,omitempty"`
	LoanDate      string       `json:"loanDate"`
	Returned      *bool        `json:"returned"`
	ReturnDate    *string      `json:"returnDate,omitempty"`
	Book          BookResponse `json:"book"`
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	resp := LoanResponse{
		ID:            l.ID,
		Customer:      l.Customer,
		CustomerEmail: l.CustomerEmail,
		LoanDate:      l.LoanDate.Format(dateLayout),
		Returned:      l.Returned,
		Book:          NewBookResponse(&l.Book),
	}
	if l.ReturnDate != nil {
		s := l.ReturnDate.Format(dateLayout)
		resp.ReturnDate = &s
	}
	return resp
}
