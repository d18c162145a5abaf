package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrAccountDisabled    = errors.New("User account is disabled")
	ErrAccountUnverified  = errors.New("User account is not verified")
	ErrInvalidToken       = errors.New("Token is invalid or expired")
	ErrTokenRevoked       = errors.New("Token is blacklisted")
)

// NonFieldErrors is the key used for errors that do not belong to one field.
const NonFieldErrors = "non_field_errors"

// ValidationError collects per-field messages so a client can show every
// problem with a submission at once.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends msg to the messages of field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Has reports whether field already carries a message.
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// ErrOrNil returns e as an error when it holds messages and nil otherwise.
func (e *ValidationError) ErrOrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports that a unique field is already taken. It matches
// ErrAccountExists with errors.Is.
type ConflictError struct {
	Field string
}

func NewConflictError(field string) *ConflictError {
	return &ConflictError{Field: field}
}

func (e *ConflictError) Error() string {
	return ConflictMessage(e.Field)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrAccountExists
}

// ConflictMessage is the user-facing text for a taken email or username.
func ConflictMessage(field string) string {
	return fmt.Sprintf("A user with that %s already exists.", field)
}
