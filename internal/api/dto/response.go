package dto

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/agentforge-ai/agentforge/internal/pkg/validation"
)

// Error codes for consistent API responses
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeVersionConflict = "VERSION_CONFLICT"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInternalServer  = "INTERNAL_SERVER_ERROR"
	ErrCodeTooManyRequest  = "TOO_MANY_REQUESTS"
)

type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *ErrorData  `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type ErrorData struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []validation.FieldError `json:"details,omitempty"`
}

type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := Response{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	_ = json.NewEncoder(w).Encode(response)
}

func JSONWithMeta(w http.ResponseWriter, status int, data interface{}, meta *Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := Response{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now().Unix(),
	}

	_ = json.NewEncoder(w).Encode(response)
}

func errorWithCode(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := Response{
		Success:   false,
		Timestamp: time.Now().Unix(),
		Error: &ErrorData{
			Code:    code,
			Message: message,
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

func ErrorResponse(w http.ResponseWriter, status int, message string) {
	errorWithCode(w, status, statusToErrorCode(status), message)
}

func ValidationErrorResponse(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	response := Response{
		Success:   false,
		Timestamp: time.Now().Unix(),
		Error: &ErrorData{
			Code:    ErrCodeValidation,
			Message: "Validation failed",
			Details: validation.FormatErrors(err),
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

// Convenience helpers

func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

func Accepted(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusAccepted, data)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func BadRequest(w http.ResponseWriter, message string) {
	errorWithCode(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	errorWithCode(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	errorWithCode(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func NotFound(w http.ResponseWriter, resource string) {
	errorWithCode(w, http.StatusNotFound, ErrCodeNotFound, resource+" not found")
}

func Conflict(w http.ResponseWriter, message string) {
	errorWithCode(w, http.StatusConflict, ErrCodeConflict, message)
}

// VersionConflict signals a stale optimistic-concurrency version. The client
// should refetch and reapply its change.
func VersionConflict(w http.ResponseWriter) {
	errorWithCode(w, http.StatusConflict, ErrCodeVersionConflict, "workflow was modified by another request, refetch and retry")
}

func InternalServerError(w http.ResponseWriter, message string) {
	errorWithCode(w, http.StatusInternalServerError, ErrCodeInternalServer, message)
}

func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeBadRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusTooManyRequests:
		return ErrCodeTooManyRequest
	case http.StatusInternalServerError:
		return ErrCodeInternalServer
	default:
		return http.StatusText(status)
	}
}

// ValidationResultResponse is the wire form of a graph validation outcome.
type ValidationResultResponse struct {
	Valid          bool                     `json:"valid"`
	Errors         []models.ValidationError `json:"errors"`
	ExecutionOrder []models.NodeID          `json:"executionOrder,omitempty"`
}

func NewValidationResultResponse(result *models.ValidationResult) ValidationResultResponse {
	errs := result.Errors
	if errs == nil {
		errs = []models.ValidationError{}
	}
	return ValidationResultResponse{
		Valid:          result.Valid,
		Errors:         errs,
		ExecutionOrder: result.ExecutionOrder,
	}
}
