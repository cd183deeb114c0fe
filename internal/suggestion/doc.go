// Package suggestion decodes and validates suggestion payloads handed to the
// engine by an AI orchestration layer.
//
// A payload names the document span it rewrites and the replacement text:
//
//	{"originalText": "big", "suggestedText": "significant",
//	 "position": {"start": 4, "end": 7}}
//
// Positions are UTF-8 byte offsets into the current document. Files group
// payloads with an optional document and author and may be JSON or YAML.
package suggestion
