package buffer

import (
	"errors"
	"strings"
	"sync"
)

// ErrRangeInvalid is returned for an edit range that does not fit the buffer.
var ErrRangeInvalid = errors.New("invalid range")

// Buffer holds the text of a document.
// All methods are thread-safe.
type Buffer struct {
	mu         sync.RWMutex
	text       string
	revisionID RevisionID
}

// NewBuffer creates a new empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{revisionID: NewRevisionID()}
}

// NewBufferFromString creates a buffer with initial content.
func NewBufferFromString(s string) *Buffer {
	b := NewBuffer()
	b.text = s
	return b
}

// Read Operations

// Text returns the full buffer content as a string.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// TextRange returns text in the given byte range.
// Out-of-range bounds are clamped to the buffer.
func (b *Buffer) TextRange(start, end ByteOffset) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sliceClamped(b.text, start, end)
}

// Len returns the total byte length of the buffer.
func (b *Buffer) Len() ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ByteOffset(len(b.text))
}

// OffsetToPoint converts a byte offset to line/column. Offsets outside the
// buffer are clamped.
func (b *Buffer) OffsetToPoint(offset ByteOffset) Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return offsetToPoint(b.text, offset)
}

// Write Operations

// ApplyEdit applies a single edit to the buffer. Inserts, deletes and
// replacements are all expressed as edits.
func (b *Buffer) ApplyEdit(edit Edit) (EditResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.validRangeLocked(edit.Range) {
		return EditResult{}, ErrRangeInvalid
	}

	oldText := b.text[edit.Range.Start:edit.Range.End]
	b.text = b.text[:edit.Range.Start] + edit.NewText + b.text[edit.Range.End:]
	b.revisionID = NewRevisionID()

	newEnd := edit.Range.Start + ByteOffset(len(edit.NewText))

	return EditResult{
		OldRange: edit.Range,
		NewRange: Range{Start: edit.Range.Start, End: newEnd},
		OldText:  oldText,
		Delta:    edit.Delta(),
	}, nil
}

// validRangeLocked checks r against the current text (must hold lock).
func (b *Buffer) validRangeLocked(r Range) bool {
	return r.Start >= 0 && r.Start <= r.End && r.End <= ByteOffset(len(b.text))
}

// Buffer State

// RevisionID returns the current revision ID.
func (b *Buffer) RevisionID() RevisionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revisionID
}

func sliceClamped(s string, start, end ByteOffset) string {
	n := ByteOffset(len(s))
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start >= end {
		return ""
	}
	return s[start:end]
}

func offsetToPoint(s string, offset ByteOffset) Point {
	if offset < 0 {
		offset = 0
	}
	if offset > ByteOffset(len(s)) {
		offset = ByteOffset(len(s))
	}
	prefix := s[:offset]
	line := strings.Count(prefix, "\n")
	col := len(prefix)
	if i := strings.LastIndexByte(prefix, '\n'); i >= 0 {
		col = len(prefix) - i - 1
	}
	return Point{Line: uint32(line), Column: uint32(col)}
}
