package change

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces change ids. Implementations must never return the
// same id twice and must be safe for concurrent use.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random UUIDv4 ids.
type UUIDGenerator struct{}

// NewID returns a new random UUID.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator generates ids of the form prefix + n with n counting up
// from 1. Useful where ids must be stable across runs.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Uint64
}

// NewSequenceGenerator creates a sequence generator with the given prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{Prefix: prefix}
}

// NewID returns the next id in the sequence.
func (g *SequenceGenerator) NewID() string {
	return g.Prefix + strconv.FormatUint(g.n.Add(1), 10)
}
