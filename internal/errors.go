package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidQuantity  ErrorCode = "INVALID_QUANTITY"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidMethod    ErrorCode = "INVALID_PAYMENT_METHOD"

	ErrCodeProductNotFound     ErrorCode = "PRODUCT_NOT_FOUND"
	ErrCodeProductUnavailable  ErrorCode = "PRODUCT_UNAVAILABLE"
	ErrCodeStockNotFound       ErrorCode = "STOCK_NOT_FOUND"
	ErrCodeInsufficientStock   ErrorCode = "INSUFFICIENT_STOCK"
	ErrCodeNegativeStock       ErrorCode = "NEGATIVE_STOCK"
	ErrCodeOrderNotFound       ErrorCode = "ORDER_NOT_FOUND"
	ErrCodePaymentNotFound     ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodePaymentExists       ErrorCode = "PAYMENT_ALREADY_EXISTS"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_PAYMENT_TRANSITION"
	ErrCodeMethodMismatch      ErrorCode = "PAYMENT_METHOD_MISMATCH"
	ErrCodeNotificationMissing ErrorCode = "NOTIFICATION_NOT_FOUND"

	ErrCodeUnauthorizedAccess ErrorCode = "UNAUTHORIZED_ACCESS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {

			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on Code so wrapped copies of a sentinel still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

var (
	ErrProductNotFound     = NewNotFoundError("Product not found", ErrCodeProductNotFound)
	ErrStockNotFound       = NewNotFoundError("Stock ledger not found for product", ErrCodeStockNotFound)
	ErrOrderNotFound       = NewNotFoundError("Order not found", ErrCodeOrderNotFound)
	ErrPaymentNotFound     = NewNotFoundError("Payment not found", ErrCodePaymentNotFound)
	ErrNotificationMissing = NewNotFoundError("Notification not found", ErrCodeNotificationMissing)

	ErrInsufficientStock  = NewConflictError("Insufficient stock", ErrCodeInsufficientStock)
	ErrNegativeStock      = NewConflictError("Stock quantity cannot be negative", ErrCodeNegativeStock)
	ErrProductUnavailable = NewConflictError("Product is not available", ErrCodeProductUnavailable)
	ErrPaymentExists      = NewConflictError("Payment already exists for order", ErrCodePaymentExists)
	ErrInvalidTransition  = NewConflictError("Payment status cannot change from its current state", ErrCodeInvalidTransition)
	ErrMethodMismatch     = NewConflictError("Payment method does not allow this verification", ErrCodeMethodMismatch)

	ErrUnauthorizedAccess = NewForbiddenError("unauthorized access", ErrCodeUnauthorizedAccess)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Wrap returns a copy of the sentinel carrying cause, leaving the shared value untouched.
func Wrap(sentinel *AppError, cause error) *AppError {
	cp := *sentinel
	cp.Cause = cause
	return &cp
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
