package engine

import "errors"

// Errors returned by engine operations.
var (
	// ErrStaleSuggestion indicates the document no longer holds the text a
	// suggestion was made against.
	ErrStaleSuggestion = errors.New("suggestion does not match the document")

	// ErrClosed indicates an operation on a closed engine.
	ErrClosed = errors.New("engine is closed")
)
