// Package overlay projects pending suggestion changes into decorations for a
// rendering layer.
//
// Each pending change yields one or two descriptors:
//
//	Addition      addition-style over its range
//	Deletion      deletion-style over its range
//	Modification  deletion-style over its range, plus a zero-width
//	              addition-style widget at its end carrying the suggestion
//
// Project is a pure function of one change. Projector keeps a per-change
// cache in sync with a store by recomputing only the ids named in each store
// event.
package overlay
