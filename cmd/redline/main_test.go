package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDoc = "The big advantage is clear"

const testSuggestions = `{
  "author": "assistant",
  "source": "unit-test",
  "suggestions": [
    {"originalText": "big", "suggestedText": "significant", "position": {"start": 4, "end": 7}},
    {"originalText": "clear", "suggestedText": "very clear", "position": {"start": 21, "end": 26}},
    {"originalText": "nope", "suggestedText": "x", "position": {"start": 0, "end": 4}}
  ]
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fixtures(t *testing.T) (doc, suggestions string) {
	t.Helper()
	dir := t.TempDir()
	doc = filepath.Join(dir, "doc.txt")
	suggestions = filepath.Join(dir, "suggestions.json")
	require.NoError(t, os.WriteFile(doc, []byte(testDoc), 0o644))
	require.NoError(t, os.WriteFile(suggestions, []byte(testSuggestions), 0o644))
	return doc, suggestions
}

func decodeReport(t *testing.T, out string) report {
	t.Helper()
	var rep report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	return rep
}

func TestReviewPending(t *testing.T) {
	doc, sugg := fixtures(t)

	out, err := execute(t, "review", "--doc", doc, "--suggestions", sugg, "--format", "json", "--seq-ids")
	require.NoError(t, err)

	rep := decodeReport(t, out)
	assert.Equal(t, "The big advantage is very clear", rep.Text)
	require.Len(t, rep.Pending, 2)
	assert.Equal(t, "modification", rep.Pending[0].Kind)
	assert.Equal(t, "addition", rep.Pending[1].Kind)
	assert.Equal(t, "assistant", rep.Pending[0].Author)
	assert.Equal(t, "1:5", rep.Pending[0].Position)
	assert.Len(t, rep.Decorations, 3)

	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, 2, rep.Skipped[0].Index)
}

func TestReviewAcceptAll(t *testing.T) {
	doc, sugg := fixtures(t)
	result := filepath.Join(t.TempDir(), "out.txt")

	out, err := execute(t, "review", "-d", doc, "-s", sugg, "--accept-all", "--format", "json", "-o", result)
	require.NoError(t, err)

	rep := decodeReport(t, out)
	assert.Equal(t, "The significant advantage is very clear", rep.Text)
	assert.Empty(t, rep.Pending)
	assert.Len(t, rep.Resolved, 2)

	written, err := os.ReadFile(result)
	require.NoError(t, err)
	assert.Equal(t, rep.Text, string(written))
}

func TestReviewRejectAll(t *testing.T) {
	doc, sugg := fixtures(t)

	out, err := execute(t, "review", "-d", doc, "-s", sugg, "--reject-all", "--format", "json")
	require.NoError(t, err)

	assert.Equal(t, testDoc, decodeReport(t, out).Text)
}

func TestReviewSelectiveDecisions(t *testing.T) {
	doc, sugg := fixtures(t)

	out, err := execute(t, "review", "-d", doc, "-s", sugg, "--format", "json", "--seq-ids")
	require.NoError(t, err)
	first := decodeReport(t, out)
	require.Len(t, first.Pending, 2)
	modID := first.Pending[0].ID

	out, err = execute(t, "review", "-d", doc, "-s", sugg, "--format", "json", "--seq-ids",
		"--accept", modID, "--reject-all")
	require.NoError(t, err)

	rep := decodeReport(t, out)
	assert.Equal(t, "The significant advantage is clear", rep.Text)
	require.Len(t, rep.Resolved, 2)
	assert.Equal(t, "accepted", rep.Resolved[0].Status)
	assert.Equal(t, "rejected", rep.Resolved[1].Status)
}

func TestReviewUnknownIDFails(t *testing.T) {
	doc, sugg := fixtures(t)

	out, err := execute(t, "review", "-d", doc, "-s", sugg, "--accept", "missing", "--format", "json")
	assert.ErrorIs(t, err, errFailures)

	rep := decodeReport(t, out)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "missing", rep.Failures[0].ID)
}

func TestReviewTextOutput(t *testing.T) {
	doc, sugg := fixtures(t)

	out, err := execute(t, "review", "-d", doc, "-s", sugg)
	require.NoError(t, err)

	assert.Contains(t, out, "pending:")
	assert.Contains(t, out, `"big" → "significant"`)
	assert.Contains(t, out, "skipped suggestions:")
	assert.Contains(t, out, "--- result\nThe big advantage is very clear\n")
}

func TestReviewDocumentFromSuggestionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`document: "Hello world"
suggestions:
  - originalText: world
    suggestedText: there
    position: {start: 6, end: 11}
`), 0o644))

	out, err := execute(t, "review", "-s", path, "--accept-all", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", decodeReport(t, out).Text)
}

func TestReviewFlagErrors(t *testing.T) {
	doc, sugg := fixtures(t)

	_, err := execute(t, "review", "-d", doc)
	assert.Error(t, err, "suggestions flag is required")

	_, err = execute(t, "review", "-d", doc, "-s", sugg, "--accept-all", "--reject-all")
	assert.Error(t, err)

	_, err = execute(t, "review", "-d", doc, "-s", sugg, "--log-level", "loud")
	assert.Error(t, err)

	_, err = execute(t, "review", "-d", doc, "-s", sugg, "--format", "xml")
	assert.Error(t, err)
}

func TestDiffCommand(t *testing.T) {
	out, err := execute(t, "diff", "--format", "json", "The big advantage", "The significant advantage")
	require.NoError(t, err)

	var res struct {
		Ops      []opView     `json:"ops"`
		Changes  []changeView `json:"changes"`
		Inserted int          `json:"inserted"`
		Deleted  int          `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	require.Len(t, res.Changes, 1)
	assert.Equal(t, "modification", res.Changes[0].Kind)
	assert.Equal(t, int64(4), res.Changes[0].Start)
	assert.Equal(t, int64(7), res.Changes[0].End)
	assert.NotEmpty(t, res.Ops)
	assert.Equal(t, len("significant"), res.Inserted)
	assert.Equal(t, len("big"), res.Deleted)
}

func TestDiffFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("one two"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("one two three"), 0o644))

	out, err := execute(t, "diff", "--files", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "addition")
	assert.Contains(t, out, `+" three"`)
	assert.Contains(t, out, "+6 -0 bytes")
}

func TestConfigFile(t *testing.T) {
	doc, sugg := fixtures(t)
	cfgPath := filepath.Join(t.TempDir(), "redline.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[suggestion]\nidPrefix = \"s\"\n"), 0o644))

	out, err := execute(t, "review", "-c", cfgPath, "-d", doc, "-s", sugg, "--format", "json")
	require.NoError(t, err)

	for _, c := range decodeReport(t, out).Pending {
		assert.Regexp(t, `^s\d+$`, c.ID)
	}
}
