package review

import (
	"errors"

	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/engine/tracking"
)

var (
	// ErrAlreadyResolved is returned when acting on a change that is no
	// longer pending. It is not fatal.
	ErrAlreadyResolved = change.ErrAlreadyResolved

	// ErrNotFound is returned for an unknown change id.
	ErrNotFound = tracking.ErrNotFound

	// ErrCorruptRange is returned when a change's range does not match the
	// buffer. The change stays pending.
	ErrCorruptRange = tracking.ErrCorruptRange

	// ErrBatchFailed is returned when every change of a batch failed.
	ErrBatchFailed = errors.New("no change in the batch could be applied")
)

// CorruptRangeError describes a change that could not be applied.
type CorruptRangeError = tracking.CorruptRangeError
