package apperrors

import "errors"

// Error kinds surfaced to callers. Every service error wraps exactly one of these.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrUnverified        = errors.New("account not verified")
	ErrExpired           = errors.New("expired")
	ErrForbidden         = errors.New("permission denied")
	ErrAlreadyUsed       = errors.New("already used")
)

// CustomError adds a caller-facing message and optional field details to a kind.
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

func New(kind error, message string) *CustomError {
	return &CustomError{Err: kind, Message: message}
}

func NewValidation(message string) *CustomError        { return New(ErrValidation, message) }
func NewConflict(message string) *CustomError          { return New(ErrConflict, message) }
func NewNotFound(message string) *CustomError          { return New(ErrNotFound, message) }
func NewInvalidCredential(message string) *CustomError { return New(ErrInvalidCredential, message) }
func NewUnverified(message string) *CustomError        { return New(ErrUnverified, message) }
func NewExpired(message string) *CustomError           { return New(ErrExpired, message) }
func NewForbidden(message string) *CustomError         { return New(ErrForbidden, message) }
func NewAlreadyUsed(message string) *CustomError       { return New(ErrAlreadyUsed, message) }

// DetailsOf returns the field details attached anywhere in err's chain.
func DetailsOf(err error) map[string]interface{} {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}

// Is reports whether err matches target or any of the extra kinds.
func Is(err, target error, others ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, o := range others {
		if errors.Is(err, o) {
			return true
		}
	}
	return false
}
