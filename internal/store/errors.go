package store

import (
	"errors"
	"fmt"

	"github.com/orcidhub/orcidhub/internal/schema"
)

var (
	// ErrRecordNotFound is matched by RecordNotFoundError.
	ErrRecordNotFound = errors.New("record not found")
	// ErrUserNotFound is matched by UserNotFoundError.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidORCID reports a malformed iD or a failed checksum.
	ErrInvalidORCID = errors.New("invalid ORCID iD")
	// ErrInvalidField is matched by FieldError.
	ErrInvalidField = errors.New("invalid field value")
)

// RecordNotFoundError is returned when no record with the put-code exists
// in the user's section.
type RecordNotFoundError struct {
	UserID  string
	Section schema.Discriminator
	PutCode string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record %s not found in %s for user %s", e.PutCode, e.Section, e.UserID)
}

// Is lets errors.Is(err, ErrRecordNotFound) match.
func (e *RecordNotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

// UserNotFoundError is returned when the user id is unknown.
type UserNotFoundError struct {
	ID string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user not found: %s", e.ID)
}

// Is lets errors.Is(err, ErrUserNotFound) match.
func (e *UserNotFoundError) Is(target error) bool {
	return target == ErrUserNotFound
}

// FieldError reports a payload value that cannot be stored.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidField) match.
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidField
}
