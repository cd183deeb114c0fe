// Package change defines tracked suggestion changes and builds them from
// diff output.
//
// A Change is one of three closed kinds:
//
//   - Addition: text the suggestion inserts.
//   - Deletion: text the suggestion removes.
//   - Modification: a deletion immediately followed by an insertion at the
//     same point, kept as one atomic replace that owns both texts.
//
// Builder walks an edit script left to right with a cursor into the original
// text and produces a ChangeSet whose ranges are in original-text
// coordinates:
//
//	b := change.NewBuilder(change.UUIDGenerator{})
//	cs := b.Build(ops, "assistant", time.Now())
//
// Additions are zero-width at the point they insert; a Modification covers
// the text it replaces.
package change
