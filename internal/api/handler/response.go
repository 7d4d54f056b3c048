package handler

import (
	"errors"
	"fmt"
	"library-api/internal/api/handler/dto"
	"library-api/internal/pkg/apperrors"
	"library-api/internal/pkg/pagination"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

type normalizer interface {
	Normalize()
}

// decodeAndValidate reads the body into req, trims it and runs its validation tags.
func decodeAndValidate(r *http.Request, req interface{}) error {
	if err := decodeJSON(r, req); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", apperrors.ErrInvalidArgument, err)
	}
	if n, ok := req.(normalizer); ok {
		n.Normalize()
	}
	return dto.Validate(req)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, code, message := http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred."
	var violations []dto.Violation
	var ruleErr *apperrors.BusinessRuleError

	switch {
	case errors.As(err, &ruleErr):
		status, code, message = http.StatusBadRequest, "BUSINESS_RULE", ruleErr.Message
	case errors.Is(err, apperrors.ErrValidation):
		status, code, message = http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed."
		violations = dto.NewViolations(err)
	case errors.Is(err, apperrors.ErrInvalidArgument):
		status, code, message = http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", "Resource not found."
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		status, code, message = http.StatusConflict, "CONFLICT", "Resource is referenced or already exists."
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"
	case errors.Is(err, apperrors.ErrInvariantViolation):
		slog.Default().Error("Invariant violated while handling request", "error", err)
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Code:       code,
			Message:    message,
			Violations: violations,
		},
	}
	if len(violations) == 1 {
		resp.Error.Field = violations[0].Field
	}
	respondJSON(w, status, resp)
}

func idFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, param)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", apperrors.ErrInvalidArgument, param)
	}
	return id, nil
}

func pageFromQuery(r *http.Request) (pagination.Request, error) {
	q := r.URL.Query()
	page, size := 0, pagination.DefaultSize

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return pagination.Request{}, apperrors.NewValidationError("page", "must be a non-negative integer")
		}
		if v > pagination.MaxPage {
			return pagination.Request{}, apperrors.NewValidationError("page", fmt.Sprintf("must not exceed %d", pagination.MaxPage))
		}
		page = v
	}
	if raw := q.Get("size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return pagination.Request{}, apperrors.NewValidationError("size", "must be a positive integer")
		}
		size = v
	}
	return pagination.NewRequest(page, size), nil
}
