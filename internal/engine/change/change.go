package change

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/redline/internal/engine/buffer"
)

// ErrAlreadyResolved is returned when resolving a change that is no longer
// pending.
var ErrAlreadyResolved = errors.New("change already resolved")

// Kind is the closed set of change kinds.
type Kind uint8

const (
	// KindAddition is text inserted by the suggestion.
	KindAddition Kind = iota

	// KindDeletion is text removed by the suggestion.
	KindDeletion

	// KindModification replaces OriginalText with SuggestedText.
	KindModification
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAddition:
		return "addition"
	case KindDeletion:
		return "deletion"
	case KindModification:
		return "modification"
	default:
		return "unknown"
	}
}

// Status is the review state of a change.
type Status uint8

const (
	// StatusPending awaits review.
	StatusPending Status = iota

	// StatusAccepted was accepted. Terminal.
	StatusAccepted

	// StatusRejected was rejected. Terminal.
	StatusRejected
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Change is a single tracked edit anchored to a buffer range.
type Change struct {
	ID   string
	Kind Kind

	// Range is in current-buffer coordinates, 0 <= Start <= End.
	Range buffer.Range

	// OriginalText is empty for additions.
	OriginalText string

	// SuggestedText is empty for deletions.
	SuggestedText string

	Status    Status
	Author    string
	CreatedAt time.Time
}

// String returns a short human-readable description of the change.
func (c Change) String() string {
	return fmt.Sprintf("%s %s %s %s", c.ID, c.Kind, c.Range, c.Status)
}

// IsPending reports whether the change awaits review.
func (c Change) IsPending() bool {
	return c.Status == StatusPending
}

// Resolve returns a copy of c moved to the given terminal status.
func (c Change) Resolve(status Status) (Change, error) {
	if !status.IsTerminal() {
		return c, fmt.Errorf("resolve %s: invalid target status %s", c.ID, status)
	}
	if c.Status != StatusPending {
		return c, fmt.Errorf("resolve %s (%s): %w", c.ID, c.Status, ErrAlreadyResolved)
	}
	c.Status = status
	return c, nil
}

// ExpectedText returns the text the buffer holds at Range while the change
// is pending. Additions are materialized in the buffer; deletions and
// modifications cover original text.
func (c Change) ExpectedText() string {
	switch c.Kind {
	case KindAddition:
		return c.SuggestedText
	case KindDeletion, KindModification:
		return c.OriginalText
	default:
		panic(fmt.Sprintf("change: unknown kind %d", c.Kind))
	}
}

// Metadata is the provenance shared by the changes of one diff pass.
type Metadata struct {
	Author    string
	CreatedAt time.Time
	Source    string
}

// ChangeSet is the ordered output of one diff pass.
type ChangeSet struct {
	Changes  []Change
	Metadata Metadata
}

// Len returns the number of changes in the set.
func (cs ChangeSet) Len() int {
	return len(cs.Changes)
}

// IDs returns the ids of the set in order.
func (cs ChangeSet) IDs() []string {
	ids := make([]string, len(cs.Changes))
	for i, c := range cs.Changes {
		ids[i] = c.ID
	}
	return ids
}

// Validate checks that ids are unique and non-empty and that no two ranges
// conflict.
func (cs ChangeSet) Validate() error {
	seen := make(map[string]struct{}, len(cs.Changes))
	for i, c := range cs.Changes {
		if c.ID == "" {
			return fmt.Errorf("change %d: empty id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("change %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}
		if !c.Range.IsValid() {
			return fmt.Errorf("change %s: invalid range %s", c.ID, c.Range)
		}
	}
	for i := range cs.Changes {
		for j := i + 1; j < len(cs.Changes); j++ {
			a, b := cs.Changes[i], cs.Changes[j]
			if Conflicts(a.Range, b.Range) {
				return fmt.Errorf("changes %s %s and %s %s overlap", a.ID, a.Range, b.ID, b.Range)
			}
		}
	}
	return nil
}

// Conflicts reports whether two change ranges cannot coexist.
// Non-empty ranges conflict when they overlap. An empty range conflicts with
// another empty range at the same point and with a range that strictly
// contains its point.
func Conflicts(a, b buffer.Range) bool {
	switch {
	case a.IsEmpty() && b.IsEmpty():
		return a.Start == b.Start
	case a.IsEmpty():
		return b.Start < a.Start && a.Start < b.End
	case b.IsEmpty():
		return a.Start < b.Start && b.Start < a.End
	default:
		return a.Overlaps(b)
	}
}
