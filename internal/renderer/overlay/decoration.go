package overlay

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/change"
)

// DefaultMaxLabelPreview is the default number of grapheme clusters of
// change text shown in a label.
const DefaultMaxLabelPreview = 24

// VisualKind is the rendering style of a decoration.
type VisualKind uint8

const (
	// VisualAddition renders as inserted text.
	VisualAddition VisualKind = iota

	// VisualDeletion renders as struck-through text.
	VisualDeletion
)

// String returns the string representation of the visual kind.
func (k VisualKind) String() string {
	switch k {
	case VisualAddition:
		return "addition"
	case VisualDeletion:
		return "deletion"
	default:
		return "unknown"
	}
}

// Decoration is a read-only visual descriptor for one pending change.
type Decoration struct {
	ChangeID   string
	ChangeKind change.Kind
	Range      buffer.Range
	Kind       VisualKind
	Label      string

	// Text is the text the decoration shows. For a widget it is not in the
	// buffer and must be drawn at Range.Start.
	Text string

	// Widget marks a zero-width decoration that carries its own text.
	Widget bool
}

// Project returns the decorations of c with labels previewing at most
// maxPreview graphemes. Resolved changes have no decorations.
func Project(c change.Change, maxPreview int) []Decoration {
	if !c.IsPending() {
		return nil
	}

	switch c.Kind {
	case change.KindAddition:
		return []Decoration{{
			ChangeID:   c.ID,
			ChangeKind: c.Kind,
			Range:      c.Range,
			Kind:       VisualAddition,
			Label:      label(c, c.SuggestedText, maxPreview),
			Text:       c.SuggestedText,
		}}
	case change.KindDeletion:
		return []Decoration{{
			ChangeID:   c.ID,
			ChangeKind: c.Kind,
			Range:      c.Range,
			Kind:       VisualDeletion,
			Label:      label(c, c.OriginalText, maxPreview),
			Text:       c.OriginalText,
		}}
	case change.KindModification:
		lbl := label(c, c.OriginalText+" → "+c.SuggestedText, maxPreview)
		return []Decoration{
			{
				ChangeID:   c.ID,
				ChangeKind: c.Kind,
				Range:      c.Range,
				Kind:       VisualDeletion,
				Label:      lbl,
				Text:       c.OriginalText,
			},
			{
				ChangeID:   c.ID,
				ChangeKind: c.Kind,
				Range:      buffer.Range{Start: c.Range.End, End: c.Range.End},
				Kind:       VisualAddition,
				Label:      lbl,
				Text:       c.SuggestedText,
				Widget:     true,
			},
		}
	default:
		panic(fmt.Sprintf("overlay: unknown change kind %d", c.Kind))
	}
}

// label formats "<kind> by <author>: <preview>".
func label(c change.Change, text string, maxPreview int) string {
	var sb strings.Builder
	sb.WriteString(c.Kind.String())
	if c.Author != "" {
		sb.WriteString(" by ")
		sb.WriteString(c.Author)
	}
	if preview := Preview(text, maxPreview); preview != "" {
		sb.WriteString(": ")
		sb.WriteString(preview)
	}
	return sb.String()
}

// Preview returns text cut to at most max grapheme clusters, with an
// ellipsis when cut. Line breaks are shown as spaces.
func Preview(text string, max int) string {
	if max <= 0 || text == "" {
		return ""
	}

	var sb strings.Builder
	rest := text
	state := -1
	for n := 0; rest != ""; n++ {
		if n == max {
			sb.WriteString("…")
			break
		}
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if cluster == "\n" || cluster == "\r\n" || cluster == "\r" {
			cluster = " "
		}
		sb.WriteString(cluster)
	}
	return sb.String()
}

// less orders decorations by position. A widget sorts before a range that
// starts at the same offset.
func less(a, b Decoration) int {
	switch {
	case a.Range.Start != b.Range.Start:
		return cmp.Compare(a.Range.Start, b.Range.Start)
	case a.Range.End != b.Range.End:
		return cmp.Compare(a.Range.End, b.Range.End)
	default:
		return strings.Compare(a.ChangeID, b.ChangeID)
	}
}
