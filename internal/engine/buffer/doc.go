// Package buffer provides the thread-safe document buffer that tracked
// changes are anchored to.
//
// The buffer package provides:
//
//   - Thread-safe read/write access via sync.RWMutex
//   - Byte-offset addressing with half-open [Start, End) ranges
//   - Insert, delete and replace edits that report how to revert them
//   - Coordinate conversion between byte offsets and line/column positions
//   - Revision tracking so callers can detect intervening writes
//
// Basic usage:
//
//	buf := buffer.NewBufferFromString("The big advantage")
//
//	// Replace "big"
//	res, err := buf.ApplyEdit(buffer.NewEdit(buffer.Range{Start: 4, End: 7}, "significant"))
//
//	// Undo it again.
//	_, err = buf.ApplyEdit(res.Revert())
//
// Unlike an editor buffer, text is stored verbatim: line endings are not
// normalized, because tracked changes carry the exact bytes they replace and
// any rewrite would invalidate their ranges.
//
// Thread Safety:
//
// All Buffer methods are thread-safe. Read operations acquire a read lock,
// while write operations acquire an exclusive write lock. Callers that need
// several reads to agree compare RevisionID before and after.
package buffer
