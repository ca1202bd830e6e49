package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of expected, user-facing failure.
type ErrorCode string

const (
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeBadRequest           ErrorCode = "BAD_REQUEST"
	CodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	CodeForbidden            ErrorCode = "FORBIDDEN"
	CodeConflict             ErrorCode = "CONFLICT"
	CodeSlotConflict         ErrorCode = "SLOT_CONFLICT"
	CodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	CodePastDate             ErrorCode = "PAST_DATE"
	CodeInvalidRating        ErrorCode = "INVALID_RATING"
	CodeDuplicateFeedback    ErrorCode = "DUPLICATE_FEEDBACK"
	CodeHasDependentFeedback ErrorCode = "HAS_DEPENDENT_FEEDBACK"
	CodeInternal             ErrorCode = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error class to its HTTP status. Every domain
// failure is a 4xx; only CodeInternal reaches 500.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message, Err: err}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewForbidden(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewConflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// NewSlotConflict names the doctor and the exact slot so the caller can
// pick another one.
func NewSlotConflict(doctorName, date, timeSlot string) *AppError {
	return &AppError{
		Code:    CodeSlotConflict,
		Message: fmt.Sprintf("%s is already booked on %s at %s. Please select another time slot.", doctorName, date, timeSlot),
	}
}

func NewInvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot change appointment status from %s to %s", from, to),
	}
}

func NewPastDate(date string) *AppError {
	return &AppError{
		Code:    CodePastDate,
		Message: fmt.Sprintf("cannot book an appointment in the past (%s)", date),
	}
}

func NewInvalidRating(rating int) *AppError {
	return &AppError{
		Code:    CodeInvalidRating,
		Message: fmt.Sprintf("rating must be between 1 and 5, got %d", rating),
	}
}

func NewDuplicateFeedback() *AppError {
	return &AppError{
		Code:    CodeDuplicateFeedback,
		Message: "feedback already exists for this appointment",
	}
}

func NewHasDependentFeedback() *AppError {
	return &AppError{
		Code:    CodeHasDependentFeedback,
		Message: "cannot delete appointment with feedback. Delete feedback first.",
	}
}

func NewInternal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal server error", Err: err}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
