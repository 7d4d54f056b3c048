package handler

import (
	"bytes"
	"fmt"
	"library-api/internal/api/handler/dto"
	"library-api/internal/domain/book"
	"library-api/internal/domain/loan"
	"library-api/internal/pkg/apperrors"
	"library-api/internal/pkg/pagination"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleLoan(id int64, returned *bool) *loan.Loan {
	return &loan.Loan{
		ID:       id,
		Book:     book.Book{ID: 3, ISBN: "123", Title: "Dune", Author: "Frank Herbert"},
		Customer: "Fulano",
		LoanDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Returned: returned,
	}
}

func TestLoanHandlerCreateLoan(t *testing.T) {
	t.Run("creates loan and returns its id", func(t *testing.T) {
		svc := new(MockLoanService)
		h := NewLoanHandler(svc, logger)
		svc.On("CreateLoan", mock.Anything, "123", "Fulano", "fulano@example.com").Return(sampleLoan(42, nil), nil).Once()

		body := `{"isbn":"123","customer":"Fulano","email":"fulano@example.com"}`
		rec := httptest.NewRecorder()
		h.CreateLoan(rec, httptest.NewRequest(http.MethodPost, "/api/loans", bytes.NewBufferString(body)))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.CreateLoanResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, int64(42), resp.ID)
		svc.AssertExpectations(t)
	})

	t.Run("book already loaned", func(t *testing.T) {
		svc := new(MockLoanService)
		h := NewLoanHandler(svc, logger)
		svc.On("CreateLoan", mock.Anything, "123", "Fulano", "").Return(nil, apperrors.NewBusinessRuleError(loan.ErrMsgBookAlreadyLoaned)).Once()

		rec := httptest.NewRecorder()
		h.CreateLoan(rec, httptest.NewRequest(http.MethodPost, "/api/loans", bytes.NewBufferString(`{"isbn":"123","customer":"Fulano"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "BUSINESS_RULE", resp.Error.Code)
		assert.Equal(t, loan.ErrMsgBookAlreadyLoaned, resp.Error.Message)
	})

	t.Run("unknown isbn", func(t *testing.T) {
		svc := new(MockLoanService)
		h := NewLoanHandler(svc, logger)
		svc.On("CreateLoan", mock.Anything, "999", "Fulano", "").
			Return(nil, fmt.Errorf("%w: book not found for isbn 999", apperrors.ErrNotFound)).Once()

		rec := httptest.NewRecorder()
		h.CreateLoan(rec, httptest.NewRequest(http.MethodPost, "/api/loans", bytes.NewBufferString(`{"isbn":"999","customer":"Fulano"}`)))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid email never reaches the service", func(t *testing.T) {
		svc := new(MockLoanService)
		h := NewLoanHandler(svc, logger)

		rec := httptest.NewRecorder()
		h.CreateLoan(rec, httptest.NewRequest(http.MethodPost, "/api/loans", bytes.NewBufferString(`{"isbn":"123","customer":"Fulano","email":"nope"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLoanHandlerGetLoan(t *testing.T) {
	svc := new(MockLoanService)
	h := NewLoanHandler(svc, logger)

	t.Run("found", func(t *testing.T) {
		svc.On("GetLoan", mock.Anything, int64(9)).Return(sampleLoan(9, nil), nil).Once()

		rec := httptest.NewRecorder()
		h.GetLoan(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/loans/9", nil), "loanID", "9"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, int64(9), resp.ID)
		assert.Equal(t, "2024-03-01", resp.LoanDate)
		assert.Nil(t, resp.Returned)
		assert.Equal(t, "Dune", resp.Book.Title)
	})

	t.Run("not found", func(t *testing.T) {
		svc.On("GetLoan", mock.Anything, int64(10)).Return(nil, apperrors.ErrNotFound).Once()

		rec := httptest.NewRecorder()
		h.GetLoan(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/loans/10", nil), "loanID", "10"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetLoan(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/loans/x", nil), "loanID", "x"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	svc.AssertExpectations(t)
}

func TestLoanHandlerReturnLoan(t *testing.T) {
	t.Run("marks returned", func(t *testing.T) {
		svc := new(MockLoanService)
		h := NewLoanHandler(svc, logger)
		returned := true
		updated := sampleLoan(9, &returned)
		returnDate := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
		updated.ReturnDate = &returnDate
		svc.On("ReturnLoan", mock.Anything, int64(9), true).Return(updated, nil).Once()

		req := httptest.NewRequest(http.MethodPatch, "/api/loans/9", bytes.NewBufferString(`{"returned":true}`))
		rec := httptest.NewRecorder()
		h.ReturnLoan(rec, withURLParam(req, "loanID", "9"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.NotNil(t, resp.Returned)
		assert.True(t, *resp.Returned)
		require.NotNil(t, resp.ReturnDate)
		assert.Equal(t, "2024-03-04", *resp.ReturnDate)
		svc.AssertExpectations(t)
	})

	t.Run("false is a valid value", func(t *testing.T) {
		svc := new(MockLoanService)
		h := NewLoanHandler(svc, logger)
		notReturned := false
		svc.On("ReturnLoan", mock.Anything, int64(9), false).Return(sampleLoan(9, &notReturned), nil).Once()

		req := httptest.NewRequest(http.MethodPatch, "/api/loans/9", bytes.NewBufferString(`{"returned":false}`))
		rec := httptest.NewRecorder()
		h.ReturnLoan(rec, withURLParam(req, "loanID", "9"))

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("missing flag", func(t *testing.T) {
		svc := new(MockLoanService)
		h := NewLoanHandler(svc, logger)

		req := httptest.NewRequest(http.MethodPatch, "/api/loans/9", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()
		h.ReturnLoan(rec, withURLParam(req, "loanID", "9"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "returned", resp.Error.Field)
		svc.AssertNotCalled(t, "ReturnLoan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown loan", func(t *testing.T) {
		svc := new(MockLoanService)
		h := NewLoanHandler(svc, logger)
		svc.On("ReturnLoan", mock.Anything, int64(77), true).Return(nil, apperrors.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodPatch, "/api/loans/77", bytes.NewBufferString(`{"returned":true}`))
		rec := httptest.NewRecorder()
		h.ReturnLoan(rec, withURLParam(req, "loanID", "77"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLoanHandlerFindLoans(t *testing.T) {
	svc := new(MockLoanService)
	h := NewLoanHandler(svc, logger)
	page := pagination.NewRequest(0, 20)
	svc.On("FindLoans", mock.Anything, loan.Filter{ISBN: "123", Customer: "Fulano"}, page).
		Return(pagination.NewPage([]loan.Loan{*sampleLoan(1, nil), *sampleLoan(2, nil)}, page, 2), nil).Once()

	rec := httptest.NewRecorder()
	h.FindLoans(rec, httptest.NewRequest(http.MethodGet, "/api/loans?isbn=123&customer=Fulano&size=20", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.PageResponse[dto.LoanResponse]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Content, 2)
	assert.Equal(t, 20, resp.Size)
	svc.AssertExpectations(t)
}
