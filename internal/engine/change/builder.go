package change

import (
	"time"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/diff"
)

// Builder converts edit scripts into change sets.
type Builder struct {
	ids IDGenerator
}

// NewBuilder creates a builder. A nil ids uses UUIDGenerator.
func NewBuilder(ids IDGenerator) *Builder {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Builder{ids: ids}
}

// Build converts ops into a change set anchored at offset 0.
func (b *Builder) Build(ops []diff.Diff, author string, ts time.Time) ChangeSet {
	return b.BuildAt(ops, 0, Metadata{Author: author, CreatedAt: ts})
}

// BuildAt converts ops into a change set whose ranges start at base.
//
// The cursor advances over equal and deleted text only. A delete becomes a
// Deletion over the text it removes, an insert becomes a zero-width Addition
// at the cursor. A Deletion directly followed by an Addition starting at its
// end is then merged into one Modification with a new id.
func (b *Builder) BuildAt(ops []diff.Diff, base buffer.ByteOffset, meta Metadata) ChangeSet {
	provisional := make([]Change, 0, len(ops))
	cursor := base

	for _, op := range ops {
		if op.Text == "" {
			continue
		}
		n := buffer.ByteOffset(len(op.Text))
		switch op.Op {
		case diff.OpEqual:
			cursor += n
		case diff.OpDelete:
			provisional = append(provisional, b.newChange(KindDeletion, buffer.Range{Start: cursor, End: cursor + n}, op.Text, "", meta))
			cursor += n
		case diff.OpInsert:
			provisional = append(provisional, b.newChange(KindAddition, buffer.Range{Start: cursor, End: cursor}, "", op.Text, meta))
		}
	}

	return ChangeSet{
		Changes:  b.merge(provisional, meta),
		Metadata: meta,
	}
}

// merge runs the adjacency merge in one left-to-right pass. A merged
// Modification is final and never merges again.
func (b *Builder) merge(in []Change, meta Metadata) []Change {
	out := make([]Change, 0, len(in))
	for i := 0; i < len(in); i++ {
		cur := in[i]
		if cur.Kind == KindDeletion && i+1 < len(in) {
			next := in[i+1]
			if next.Kind == KindAddition && next.Range.Start == cur.Range.End {
				r := buffer.Range{Start: cur.Range.Start, End: next.Range.End}
				out = append(out, b.newChange(KindModification, r, cur.OriginalText, next.SuggestedText, meta))
				i++
				continue
			}
		}
		out = append(out, cur)
	}
	return out
}

func (b *Builder) newChange(kind Kind, r buffer.Range, original, suggested string, meta Metadata) Change {
	return Change{
		ID:            b.ids.NewID(),
		Kind:          kind,
		Range:         r,
		OriginalText:  original,
		SuggestedText: suggested,
		Status:        StatusPending,
		Author:        meta.Author,
		CreatedAt:     meta.CreatedAt,
	}
}
