package board

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyContent     = errors.New("content is required")
	ErrContentTooLong   = fmt.Errorf("content exceeds %d characters", MaxContentLength)
	ErrNicknameTooLong  = fmt.Errorf("nickname exceeds %d characters", MaxNicknameLength)
	ErrInvalidCategory  = errors.New("unknown category")
	ErrInvalidImage     = errors.New("unsupported image")
	ErrMissingUser      = errors.New("user id is required")
	ErrUnknownReaction  = errors.New("unknown reaction kind")
	ErrQuotaExceeded    = errors.New("reaction quota exceeded")
	ErrInvalidReference = errors.New("review not found")
)

var rules = map[error]string{
	ErrEmptyContent:    "empty_content",
	ErrContentTooLong:  "content_too_long",
	ErrNicknameTooLong: "nickname_too_long",
	ErrInvalidCategory: "invalid_category",
	ErrInvalidImage:    "invalid_image",
	ErrMissingUser:     "missing_user",
	ErrUnknownReaction: "unknown_reaction",
}

// ValidationError reports bad user input. It is raised before any call to
// an external collaborator.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Rule names the failed validation rule for client-side messaging.
func (e *ValidationError) Rule() string {
	if r, ok := rules[e.Err]; ok {
		return r
	}
	for sentinel, r := range rules {
		if errors.Is(e.Err, sentinel) {
			return r
		}
	}
	return "invalid"
}

// Invalid wraps a validation sentinel with the offending field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// PersistenceError wraps a failed call to the persistence or blob
// storage collaborator.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
