// Package diff computes character-level edit scripts between an original text
// and a suggested replacement.
//
// The raw script comes from the Myers algorithm in
// github.com/sergi/go-diff/diffmatchpatch. It is then cleaned up so that edit
// boundaries are legible to a reader: semantic cleanup aligns edits to word
// boundaries, fragmented delete/insert runs are folded into a single delete
// followed by a single insert, and tiny equalities stranded between two edits
// are absorbed into them. None of these passes changes the reconstructed
// texts; only the granularity of the ops.
//
//	d := diff.New()
//	ops := d.Diff("The big advantage", "The significant advantage")
//	// [equal "The "] [delete "big"] [insert "significant"] [equal " advantage"]
//
// For large inputs the computation can be moved off the caller's goroutine
// with a [Worker], which also discards results superseded by a newer request
// for the same document region.
package diff
