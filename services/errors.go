package services

import (
	"errors"
	"strings"
)

var (
	// ErrConflict is returned when a record with the same identity exists.
	ErrConflict = errors.New("already exists")
	// ErrBlocked is returned for blocked senders and blocked contractors.
	ErrBlocked = errors.New("blocked")
	// ErrUnauthorized covers bad credentials and bad session tokens.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError lists the input fields that were missing or malformed.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

func invalid(msg string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Message: msg}
}

func missing(fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
