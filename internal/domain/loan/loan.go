package loan

import (
	"library-api/internal/domain/book"
	"strings"
	"time"
)

// GracePeriodDays is how many days a loan may stay open before it is overdue.
const GracePeriodDays = 4

// Loan records one customer borrowing one book.
//
// Returned is tri-state: nil until the return endpoint is called, then the
// flag that was sent. Both nil and false mean the book is still out.
type Loan struct {
	ID            int64
	Book          book.Book
	Customer      string
	CustomerEmail string
	LoanDate      time.Time
	Returned      *bool
	ReturnDate    *time.Time
}

// Filter selects loans whose book ISBN equals ISBN or whose customer equals
// Customer. Empty fields are not part of the disjunction.
type Filter struct {
	ISBN     string
	Customer string
}

func (f Filter) IsEmpty() bool {
	return f.ISBN == "" && f.Customer == ""
}

// Matches reports whether the loan satisfies the filter.
func (f Filter) Matches(l Loan) bool {
	if f.IsEmpty() {
		return true
	}
	return (f.ISBN != "" && l.Book.ISBN == f.ISBN) ||
		(f.Customer != "" && l.Customer == f.Customer)
}

func NewLoan(b book.Book, customer, email string, loanDate time.Time) *Loan {
	return &Loan{
		Book:          b,
		Customer:      strings.TrimSpace(customer),
		CustomerEmail: strings.TrimSpace(email),
		LoanDate:      DateOf(loanDate),
	}
}

func (l *Loan) IsOpen() bool {
	return l.Returned == nil || !*l.Returned
}

// IsOverdue reports whether the loan is open and was taken strictly before
// threshold.
func (l *Loan) IsOverdue(threshold time.Time) bool {
	return l.IsOpen() && l.LoanDate.Before(DateOf(threshold))
}

// MarkReturned records the return flag. A true flag stamps the return date.
func (l *Loan) MarkReturned(returned bool, on time.Time) {
	l.Returned = &returned
	if returned {
		d := DateOf(on)
		l.ReturnDate = &d
	} else {
		l.ReturnDate = nil
	}
}

// NotificationAddress is where overdue notices for this loan are sent.
func (l *Loan) NotificationAddress() string {
	if l.CustomerEmail != "" {
		return l.CustomerEmail
	}
	return l.Customer
}

// DateOf truncates t to its calendar date, expressed as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OverdueThreshold returns the first loan date that is not yet overdue on the
// day of now.
func OverdueThreshold(now time.Time) time.Time {
	return DateOf(now).AddDate(0, 0, -GracePeriodDays)
}
