package book

import "strings"

type Book struct {
	ID     int64
	ISBN   string
	Title  string
	Author string
}

// Filter is a query-by-example template. Empty fields match every book, set
// fields match case-insensitively as substrings.
type Filter struct {
	ISBN   string
	Title  string
	Author string
}

func (f Filter) Normalize() Filter {
	return Filter{
		ISBN:   strings.TrimSpace(f.ISBN),
		Title:  strings.TrimSpace(f.Title),
		Author: strings.TrimSpace(f.Author),
	}
}

func (f Filter) IsEmpty() bool {
	n := f.Normalize()
	return n.ISBN == "" && n.Title == "" && n.Author == ""
}

// Matches applies the filter to a single book in memory.
func (f Filter) Matches(b Book) bool {
	n := f.Normalize()
	return containsFold(b.ISBN, n.ISBN) &&
		containsFold(b.Title, n.Title) &&
		containsFold(b.Author, n.Author)
}

func containsFold(value, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(term))
}
