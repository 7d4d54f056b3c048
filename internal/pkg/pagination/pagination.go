package pagination

import "math"

const (
	DefaultSize = 10
	MaxSize     = 100
	// MaxPage keeps Offset within a 32-bit SQL OFFSET for every allowed size.
	MaxPage = math.MaxInt32 / MaxSize
)

// Request is a zero-based page request.
type Request struct {
	Page int
	Size int
}

func NewRequest(page, size int) Request {
	if page < 0 {
		page = 0
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Request{Page: page, Size: size}
}

func (r Request) Offset() int {
	return r.Page * r.Size
}

// Page is one slice of an ordered result set plus the total count of
// elements matching the query.
type Page[T any] struct {
	Content       []T
	Number        int
	Size          int
	TotalElements int64
}

func NewPage[T any](content []T, req Request, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		Content:       content,
		Number:        req.Page,
		Size:          req.Size,
		TotalElements: total,
	}
}

func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
}

// Map converts the content of a page while keeping its paging metadata.
func Map[T, R any](p Page[T], fn func(T) R) Page[R] {
	out := make([]R, 0, len(p.Content))
	for _, item := range p.Content {
		out = append(out, fn(item))
	}
	return Page[R]{
		Content:       out,
		Number:        p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
	}
}
