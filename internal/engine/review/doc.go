// Package review applies accept and reject decisions for tracked changes to
// the document buffer.
//
// The buffer holds the original text with additions already inserted, so
// each decision maps to at most one buffer edit:
//
//	kind          accept                    reject
//	Addition      no edit                   remove range
//	Deletion      remove range              no edit
//	Modification  replace with suggestion   no edit
//
// Batch operations visit every pending change in strictly descending
// position order, so an edit never moves a change still waiting in the
// batch. A change whose range no longer matches the buffer is skipped and
// reported; the rest of the batch continues.
package review
