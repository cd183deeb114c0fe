// Package tracking keeps the authoritative set of suggestion changes for one
// document and keeps their positions valid as the document is edited.
//
// # Core Components
//
//   - [Store]: id-indexed arena of pending changes with a position index
//   - [RemapResult]: what a document edit did to the stored ranges
//   - resolved history: a bounded ring of accepted and rejected changes
//
// # Usage
//
//	store := tracking.NewStore()
//	if err := store.Add(cs); err != nil {
//	    // *DuplicateIDError or *OverlapError
//	}
//
//	// The user typed "abc" at offset 10.
//	res := store.Remap(10, 10, 3)
//
//	// Changes visible in [0, 40).
//	visible := store.FindInRange(0, 40)
//
// # Remapping
//
// After the buffer changes in [from, to) to text of length n, ranges ending
// at or before from are untouched, ranges starting at or after to shift by
// n-(to-from), and any range the edit touches is dropped: its texts no
// longer correspond to the buffer.
//
// # Thread Safety
//
// All Store operations are thread-safe through internal locking. Observers
// registered with Subscribe are called after the lock is released.
package tracking
