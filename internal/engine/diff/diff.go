package diff

import (
	"fmt"
	"strings"
)

// Op is the kind of a diff operation.
type Op uint8

const (
	// OpEqual marks text present in both texts.
	OpEqual Op = iota

	// OpInsert marks text present only in the suggested text.
	OpInsert

	// OpDelete marks text present only in the original text.
	OpDelete
)

// String returns the string representation of the op.
func (op Op) String() string {
	switch op {
	case OpEqual:
		return "equal"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Diff is a single operation of an edit script.
type Diff struct {
	Op   Op
	Text string
}

// String returns a human-readable representation of the op.
func (d Diff) String() string {
	return fmt.Sprintf("%s %q", d.Op, d.Text)
}

// Source reconstructs the original text from an edit script.
func Source(diffs []Diff) string {
	var sb strings.Builder
	for _, d := range diffs {
		if d.Op != OpInsert {
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}

// Target reconstructs the suggested text from an edit script.
func Target(diffs []Diff) string {
	var sb strings.Builder
	for _, d := range diffs {
		if d.Op != OpDelete {
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}

// HasChanges reports whether the script contains any insert or delete.
func HasChanges(diffs []Diff) bool {
	for _, d := range diffs {
		if d.Op != OpEqual {
			return true
		}
	}
	return false
}

// Stats counts the bytes inserted and deleted by a script.
func Stats(diffs []Diff) (inserted, deleted int) {
	for _, d := range diffs {
		switch d.Op {
		case OpInsert:
			inserted += len(d.Text)
		case OpDelete:
			deleted += len(d.Text)
		}
	}
	return inserted, deleted
}
