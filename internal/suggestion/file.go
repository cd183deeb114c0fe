package suggestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a payload file encoding.
type Format uint8

const (
	// FormatJSON is JSON.
	FormatJSON Format = iota

	// FormatYAML is YAML.
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatForPath picks the format from a file extension. Unknown extensions
// are treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// File is a batch of suggestions for one document.
type File struct {
	// Document is the full original document, when the file carries it.
	Document string `json:"document,omitempty" yaml:"document,omitempty"`

	// Author is the default author of every suggestion.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// Source describes where the suggestions came from.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	Suggestions []Payload `json:"suggestions" yaml:"suggestions"`
}

// AuthorOf returns the author of p, falling back to the file author.
func (f File) AuthorOf(p Payload) string {
	if p.Author != "" {
		return p.Author
	}
	return f.Author
}

// Decode reads a suggestion file in the given format.
func Decode(r io.Reader, format Format) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("read suggestions: %w", err)
	}

	var f File
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return File{}, fmt.Errorf("decode json suggestions: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && err != io.EOF {
			return File{}, fmt.Errorf("decode yaml suggestions: %w", err)
		}
	default:
		return File{}, fmt.Errorf("decode suggestions: unknown format %d", format)
	}
	return f, nil
}

// DecodeFile reads a suggestion file, choosing the format by extension.
func DecodeFile(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer fh.Close()

	f, err := Decode(fh, FormatForPath(path))
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
