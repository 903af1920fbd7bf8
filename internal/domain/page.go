package domain

import "fmt"

const (
	// DefaultPageSize applies when the caller omits size.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows one page may return.
	MaxPageSize = 100
)

// PageRequest is the validated pagination window for a list query.
type PageRequest struct {
	Page int
	Size int
}

// NewPageRequest applies defaults for zero values and validates bounds.
func NewPageRequest(page, size int) (PageRequest, error) {
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		return PageRequest{}, fmt.Errorf("%w: page must be >= 1", ErrInvalidCriteria)
	}
	if size < 1 || size > MaxPageSize {
		return PageRequest{}, fmt.Errorf("%w: size must be between 1 and %d", ErrInvalidCriteria, MaxPageSize)
	}
	return PageRequest{Page: page, Size: size}, nil
}

// Offset returns the number of rows to skip.
func (r PageRequest) Offset() int { return (r.Page - 1) * r.Size }

// Page is the uniform paginated result envelope.
type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Size  int
	Pages int
}

// NewPage computes the page-count metadata for a result window. A window
// past the last page carries an empty item list with total and pages still
// populated.
func NewPage[T any](items []T, total int, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Total: total,
		Page:  req.Page,
		Size:  req.Size,
		Pages: (total + req.Size - 1) / req.Size,
	}
}
