package buffer

import "fmt"

// Edit replaces Range with NewText.
type Edit struct {
	Range   Range
	NewText string
}

// NewEdit creates an Edit replacing r with newText.
func NewEdit(r Range, newText string) Edit {
	return Edit{Range: r, NewText: newText}
}

// NewInsert creates an Edit inserting text at offset.
func NewInsert(offset ByteOffset, text string) Edit {
	return Edit{Range: Range{Start: offset, End: offset}, NewText: text}
}

// NewDelete creates an Edit removing [start, end).
func NewDelete(start, end ByteOffset) Edit {
	return Edit{Range: Range{Start: start, End: end}}
}

func (e Edit) String() string {
	switch {
	case e.Range.IsEmpty():
		return fmt.Sprintf("Insert(%d, %q)", e.Range.Start, e.NewText)
	case e.NewText == "":
		return "Delete" + e.Range.String()
	default:
		return fmt.Sprintf("Replace%s with %q", e.Range, e.NewText)
	}
}

// Delta returns how much the edit grows the buffer. Negative when it
// shrinks.
func (e Edit) Delta() ByteOffset {
	return ByteOffset(len(e.NewText)) - e.Range.Len()
}

// EditResult describes an applied edit.
type EditResult struct {
	// OldRange is the replaced range, in pre-edit coordinates.
	OldRange Range
	// NewRange covers the inserted text, in post-edit coordinates.
	NewRange Range
	// OldText is the replaced text.
	OldText string
	Delta   ByteOffset
}

// Revert returns the edit that undoes r.
func (r EditResult) Revert() Edit {
	return Edit{Range: r.NewRange, NewText: r.OldText}
}
