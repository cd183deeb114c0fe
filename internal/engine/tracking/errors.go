package tracking

import (
	"errors"
	"fmt"

	"github.com/dshills/redline/internal/engine/buffer"
)

// Sentinel errors for the change store.
var (
	// ErrNotFound is returned for an id the store does not know.
	ErrNotFound = errors.New("change not found")

	// ErrDuplicateID is returned when adding an id that already exists.
	ErrDuplicateID = errors.New("duplicate change id")

	// ErrOverlapViolation is returned when two pending changes overlap.
	ErrOverlapViolation = errors.New("overlapping pending changes")

	// ErrCorruptRange is returned when a change range no longer matches the
	// buffer.
	ErrCorruptRange = errors.New("change range does not fit the buffer")
)

// DuplicateIDError reports an id that is already stored.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate change id %q", e.ID)
}

// Unwrap returns ErrDuplicateID.
func (e *DuplicateIDError) Unwrap() error {
	return ErrDuplicateID
}

// OverlapError reports two changes whose ranges conflict.
type OverlapError struct {
	ID         string
	Range      buffer.Range
	OtherID    string
	OtherRange buffer.Range
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("change %s %s overlaps change %s %s", e.ID, e.Range, e.OtherID, e.OtherRange)
}

// Unwrap returns ErrOverlapViolation.
func (e *OverlapError) Unwrap() error {
	return ErrOverlapViolation
}

// CorruptRangeError reports a change whose range cannot be applied to the
// buffer.
type CorruptRangeError struct {
	ID        string
	Range     buffer.Range
	BufferLen buffer.ByteOffset

	// Reason describes the mismatch.
	Reason string
}

func (e *CorruptRangeError) Error() string {
	return fmt.Sprintf("change %s range %s (buffer length %d): %s", e.ID, e.Range, e.BufferLen, e.Reason)
}

// Unwrap returns ErrCorruptRange.
func (e *CorruptRangeError) Unwrap() error {
	return ErrCorruptRange
}
