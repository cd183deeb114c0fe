package buffer

import (
	"cmp"
	"fmt"
	"sync/atomic"
)

// ByteOffset is a byte position in the buffer.
type ByteOffset = int64

// Point is a 0-indexed line and byte column.
type Point struct {
	Line   uint32
	Column uint32
}

// String returns the 1-indexed "line:column" form editors show.
func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Compare orders points by line, then column.
func (p Point) Compare(other Point) int {
	if c := cmp.Compare(p.Line, other.Line); c != 0 {
		return c
	}
	return cmp.Compare(p.Column, other.Column)
}

// RevisionID identifies a buffer state. Every successful mutation moves the
// buffer to a new, process-unique revision.
type RevisionID uint64

var revisionCounter atomic.Uint64

// NewRevisionID returns a fresh revision.
func NewRevisionID() RevisionID {
	return RevisionID(revisionCounter.Add(1))
}
