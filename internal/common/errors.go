// Package common provides shared utilities used across all features
package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/solmesh/trade-engine/internal/domain"
)

// HttpError represents an HTTP error with status code and message
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    messageOrDefault(msg, "Bad request"),
	}
}

func HTTPErrorNotFound(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    messageOrDefault(msg, "Not found"),
	}
}

func HTTPErrorInternalError(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    messageOrDefault(msg, "Internal server error"),
	}
}

func HTTPErrorUnavailable(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "UNAVAILABLE",
		Message:    messageOrDefault(msg, "Service unavailable"),
	}
}

func HTTPErrorConflict(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusConflict,
		Code:       "RESOURCE_CONFLICT",
		Message:    messageOrDefault(msg, "Resource conflict"),
	}
}

// HTTPErrorFromTrade maps the trade error taxonomy onto HTTP status codes.
// Client-caused outcomes (rejection, slippage, funds) are 4xx; network and
// infrastructure outcomes are 5xx.
func HTTPErrorFromTrade(err error) *HttpError {
	switch {
	case errors.Is(err, domain.ErrVenueUnavailable):
		return HTTPErrorNotFound(err.Error())
	case errors.Is(err, domain.ErrUserRejected),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrSlippageExceeded),
		errors.Is(err, domain.ErrQuoteExpired):
		return HTTPErrorBadRequest(err.Error())
	case errors.Is(err, domain.ErrSimulationFailed),
		errors.Is(err, domain.ErrOnchainExecution):
		return &HttpError{
			StatusCode: http.StatusUnprocessableEntity,
			Code:       "EXECUTION_FAILED",
			Message:    err.Error(),
		}
	case errors.Is(err, domain.ErrConfirmationTimeout):
		return &HttpError{
			StatusCode: http.StatusGatewayTimeout,
			Code:       "CONFIRMATION_TIMEOUT",
			Message:    err.Error(),
		}
	case errors.Is(err, domain.ErrSubmissionNetwork),
		errors.Is(err, domain.ErrBlockhashExpired):
		return HTTPErrorUnavailable(err.Error())
	default:
		return HTTPErrorInternalError(err.Error())
	}
}
