package notification

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("invalid notification record")
	ErrUnknownType = errors.New("unknown notification type")
)

// ValidationError identifies the record and field that failed validation.
type ValidationError struct {
	Index    int    // position of the record in the batch
	RecordID string // empty when the record had no usable id
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %d (id %q): field %q: %s", e.Index, e.RecordID, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnknownNotificationTypeError is returned for a record whose discriminant
// names no known kind.
type UnknownNotificationTypeError struct {
	Index    int
	RecordID string
	Type     string
}

func (e *UnknownNotificationTypeError) Error() string {
	return fmt.Sprintf("record %d (id %q): unknown notification type %q", e.Index, e.RecordID, e.Type)
}

func (e *UnknownNotificationTypeError) Unwrap() error { return ErrUnknownType }
