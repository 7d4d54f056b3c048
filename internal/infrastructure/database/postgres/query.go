package postgres

import (
	"library-api/internal/domain/book"
	"library-api/internal/domain/loan"
	"library-api/internal/pkg/pagination"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	dialectPostgres = "postgres"

	tableBooks = "books"
	tableLoans = "loans"

	colID     = "id"
	colISBN   = "isbn"
	colTitle  = "title"
	colAuthor = "author"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var loanColumns = []any{
	"l.id", "l.customer", "l.customer_email", "l.loan_date", "l.returned", "l.return_date",
	"b.id", "b.isbn", "b.title", "b.author",
}

// containsPattern turns a search term into an ILIKE pattern matching it
// anywhere, with LIKE wildcards in the term taken literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// bookFilterExpressions compiles a query-by-example filter into one ILIKE
// predicate per set field. The predicates are ANDed by Where.
func bookFilterExpressions(f book.Filter) []exp.Expression {
	matchers := []struct {
		column string
		term   string
	}{
		{colISBN, f.ISBN},
		{colTitle, f.Title},
		{colAuthor, f.Author},
	}

	exprs := make([]exp.Expression, 0, len(matchers))
	for _, m := range matchers {
		if m.term == "" {
			continue
		}
		exprs = append(exprs, goqu.C(m.column).ILike(containsPattern(m.term)))
	}
	return exprs
}

// loanFilterExpressions ORs the set fields of the filter. An empty filter
// yields no predicate.
func loanFilterExpressions(f loan.Filter) []exp.Expression {
	alternatives := make([]exp.Expression, 0, 2)
	if f.ISBN != "" {
		alternatives = append(alternatives, goqu.I("b.isbn").Eq(f.ISBN))
	}
	if f.Customer != "" {
		alternatives = append(alternatives, goqu.I("l.customer").Eq(f.Customer))
	}
	if len(alternatives) == 0 {
		return nil
	}
	return []exp.Expression{goqu.Or(alternatives...)}
}

func booksDataset(where []exp.Expression) *goqu.SelectDataset {
	ds := goqu.Dialect(dialectPostgres).From(tableBooks).Prepared(true)
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	return ds
}

func loansDataset(where []exp.Expression) *goqu.SelectDataset {
	ds := goqu.Dialect(dialectPostgres).
		From(goqu.T(tableLoans).As("l")).
		InnerJoin(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("l.book_id").Eq(goqu.I("b.id")))).
		Prepared(true)
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	return ds
}

func paged(ds *goqu.SelectDataset, page pagination.Request) *goqu.SelectDataset {
	return ds.Limit(uint(page.Size)).Offset(uint(page.Offset()))
}

func findBooksQuery(f book.Filter, page pagination.Request) (string, []any, error) {
	ds := booksDataset(bookFilterExpressions(f)).
		Select(colID, colISBN, colTitle, colAuthor).
		Order(goqu.C(colID).Asc())
	return paged(ds, page).ToSQL()
}

func countBooksQuery(f book.Filter) (string, []any, error) {
	return booksDataset(bookFilterExpressions(f)).
		Select(goqu.COUNT(goqu.Star())).
		ToSQL()
}

func findLoansQuery(where []exp.Expression, page pagination.Request) (string, []any, error) {
	ds := loansDataset(where).
		Select(loanColumns...).
		Order(goqu.I("l.id").Asc())
	return paged(ds, page).ToSQL()
}

func countLoansQuery(where []exp.Expression) (string, []any, error) {
	return loansDataset(where).
		Select(goqu.COUNT(goqu.Star())).
		ToSQL()
}

func loansByBookExpressions(bookID int64) []exp.Expression {
	return []exp.Expression{goqu.I("l.book_id").Eq(bookID)}
}
