// Package engine provides the suggestion review session: one document
// buffer with the AI suggestions tracked against it.
//
// The engine package is the facade over the sub-packages:
//
//   - buffer: the document text and edit primitives
//   - diff: character diff with semantic cleanup, run off the caller
//   - change: the Change model and the builder turning diffs into changes
//   - tracking: the store keeping change ranges valid under edits
//   - review: accept and reject, single and batch
//
// # Buffer Model
//
// The buffer holds the original text with suggested additions already
// inserted. Deleted and replaced text stays in the buffer until accepted;
// a replacement's new text is shown as a widget decoration. Rejecting every
// change therefore restores the original and accepting every change yields
// the suggestion.
//
// # Basic Usage
//
//	e := engine.New(engine.WithContent("The big advantage"))
//	defer e.Close()
//
//	cs, err := e.Suggest(ctx, suggestion.Payload{
//	    OriginalText:  "big",
//	    SuggestedText: "significant",
//	    Position:      suggestion.Position{Start: 4, End: 7},
//	}, change.Metadata{Author: "assistant"})
//
//	e.Decorations()   // strike "big", widget "significant"
//	e.AcceptAll()     // "The significant advantage"
//
// # Thread Safety
//
// All Engine operations are safe for concurrent use. Mutations are
// serialized by a single mutex; the diff for a suggestion runs without it
// and its result is discarded if the document region changed meanwhile.
package engine
