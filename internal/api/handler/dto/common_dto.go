package dto

import (
	"errors"
	"library-api/internal/pkg/apperrors"
	"library-api/internal/pkg/pagination"
)

type PageResponse[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func NewPageResponse[D, R any](p pagination.Page[D], convert func(D) R) PageResponse[R] {
	converted := pagination.Map(p, convert)
	return PageResponse[R]{
		Content:       converted.Content,
		Page:          converted.Number,
		Size:          converted.Size,
		TotalElements: converted.TotalElements,
		TotalPages:    converted.TotalPages(),
	}
}

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorDetail struct {
	Code       string      `json:"code,omitempty"`
	Message    string      `json:"message"`
	Field      string      `json:"field,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// NewViolations flattens field errors found anywhere in err's chain.
func NewViolations(err error) []Violation {
	var many apperrors.ValidationErrors
	if errors.As(err, &many) {
		out := make([]Violation, 0, len(many))
		for _, v := range many {
			out = append(out, Violation{Field: v.Field, Message: v.Message})
		}
		return out
	}
	var one *apperrors.ValidationError
	if errors.As(err, &one) {
		return []Violation{{Field: one.Field, Message: one.Message}}
	}
	return nil
}

type TokenRequest struct {
	Username string `json:"username" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
