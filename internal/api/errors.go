// Package api provides error handling utilities for the control API.
package api

import (
	"errors"
	"net/http"

	"github.com/Atharva0045/cloud-autoscaler/internal/cloud"
	"github.com/Atharva0045/cloud-autoscaler/internal/metricsource"
	"github.com/Atharva0045/cloud-autoscaler/internal/prediction"
	"github.com/Atharva0045/cloud-autoscaler/internal/sequence"
)

// APIError represents a structured API error.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common API error codes.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Predefined API errors.
var (
	ErrInstanceNotFound = &APIError{
		HTTPStatus: http.StatusNotFound,
		Code:       ErrCodeNotFound,
		Message:    "Managed instance not found",
	}
	ErrModelUnavailable = &APIError{
		HTTPStatus: http.StatusNotFound,
		Code:       ErrCodeNotFound,
		Message:    "Model artifact not found",
	}
	ErrMetricsUnavailable = &APIError{
		HTTPStatus: http.StatusBadGateway,
		Code:       ErrCodeUpstream,
		Message:    "Metrics backend returned no data",
	}
	ErrInternalError = &APIError{
		HTTPStatus: http.StatusInternalServerError,
		Code:       ErrCodeInternalError,
		Message:    "Internal server error",
	}
)

// NewValidationError creates a validation error with a custom message.
func NewValidationError(message string) *APIError {
	return &APIError{
		HTTPStatus: http.StatusBadRequest,
		Code:       ErrCodeValidation,
		Message:    message,
	}
}

// MapDomainError maps domain errors to API errors.
func MapDomainError(err error) *APIError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, cloud.ErrInstanceNotFound):
		return ErrInstanceNotFound
	case errors.Is(err, prediction.ErrMissingArtifact):
		return ErrModelUnavailable
	case errors.Is(err, metricsource.ErrNoMetrics):
		return ErrMetricsUnavailable
	case errors.Is(err, prediction.ErrInsufficientData):
		return NewValidationError(err.Error())
	case errors.Is(err, prediction.ErrMissingFeature):
		return NewValidationError(err.Error())
	case errors.Is(err, sequence.ErrUnknownType):
		return NewValidationError(err.Error())
	default:
		return ErrInternalError
	}
}

// WriteAPIError writes an API error response.
func (h *Handler) WriteAPIError(w http.ResponseWriter, err *APIError) {
	h.writeJSON(w, err.HTTPStatus, err)
}

// HandleError maps a domain error to an API error and writes the response.
// Returns true if an error was handled, false if err was nil.
func (h *Handler) HandleError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}

	apiErr := MapDomainError(err)
	if apiErr.Code == ErrCodeInternalError {
		h.logger.Error().Err(err).Msg("Unhandled domain error")
	}
	h.WriteAPIError(w, apiErr)
	return true
}
