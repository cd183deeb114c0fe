package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dshills/redline/internal/engine"
	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/engine/diff"
	"github.com/dshills/redline/internal/renderer/overlay"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

// report is the outcome of one review pass.
type report struct {
	Document    string           `json:"-"`
	Ingested    []changeView     `json:"ingested"`
	Skipped     []skippedView    `json:"skipped,omitempty"`
	Resolved    []changeView     `json:"resolved,omitempty"`
	Failures    []failureView    `json:"failures,omitempty"`
	Pending     []changeView     `json:"pending"`
	Decorations []decorationView `json:"decorations"`
	Text        string           `json:"text"`
}

type changeView struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Start         int64  `json:"start"`
	End           int64  `json:"end"`
	OriginalText  string `json:"originalText,omitempty"`
	SuggestedText string `json:"suggestedText,omitempty"`
	Status        string `json:"status"`
	Author        string `json:"author,omitempty"`

	// Position is the 1-indexed line:column of Start, for pending changes.
	Position string `json:"position,omitempty"`
}

type decorationView struct {
	ChangeID string `json:"changeId"`
	Kind     string `json:"kind"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Label    string `json:"label"`
	Text     string `json:"text,omitempty"`
	Widget   bool   `json:"widget,omitempty"`
}

type skippedView struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Error string `json:"error"`
}

type failureView struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

func viewChange(c engine.Change) changeView {
	return changeView{
		ID:            c.ID,
		Kind:          c.Kind.String(),
		Start:         c.Range.Start,
		End:           c.Range.End,
		OriginalText:  c.OriginalText,
		SuggestedText: c.SuggestedText,
		Status:        c.Status.String(),
		Author:        c.Author,
	}
}

func viewDecoration(d engine.Decoration) decorationView {
	kind := "addition"
	if d.Kind == overlay.VisualDeletion {
		kind = "deletion"
	}
	return decorationView{
		ChangeID: d.ChangeID,
		Kind:     kind,
		Start:    d.Range.Start,
		End:      d.Range.End,
		Label:    d.Label,
		Text:     d.Text,
		Widget:   d.Widget,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(w io.Writer, format string, rep *report) error {
	switch format {
	case formatJSON:
		return writeJSON(w, rep)
	case formatText:
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	section := func(title string, n int) {
		if n > 0 {
			fmt.Fprintf(tw, "%s:\n", title)
		}
	}

	section("skipped suggestions", len(rep.Skipped))
	for _, s := range rep.Skipped {
		fmt.Fprintf(tw, "  #%d\t[%d, %d)\t%s\n", s.Index, s.Start, s.End, s.Error)
	}
	section("resolved", len(rep.Resolved))
	for _, c := range rep.Resolved {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.ID, c.Kind, c.Status)
	}
	section("failed", len(rep.Failures))
	for _, f := range rep.Failures {
		fmt.Fprintf(tw, "  %s\t%s\n", f.ID, f.Error)
	}
	section("pending", len(rep.Pending))
	for _, c := range rep.Pending {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t[%d, %d)\t%s\n", c.ID, c.Kind, c.Position, c.Start, c.End, describe(c))
	}
	section("decorations", len(rep.Decorations))
	for _, d := range rep.Decorations {
		kind := d.Kind
		if d.Widget {
			kind += " widget"
		}
		fmt.Fprintf(tw, "  [%d, %d)\t%s\t%s\n", d.Start, d.End, kind, d.Label)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "--- result\n%s", rep.Text)
	if err == nil && !strings.HasSuffix(rep.Text, "\n") {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

func describe(c changeView) string {
	switch c.Kind {
	case change.KindAddition.String():
		return fmt.Sprintf("+%q", c.SuggestedText)
	case change.KindDeletion.String():
		return fmt.Sprintf("-%q", c.OriginalText)
	default:
		return fmt.Sprintf("%q → %q", c.OriginalText, c.SuggestedText)
	}
}

func writeDiff(w io.Writer, format string, ops []diff.Diff, cs change.ChangeSet) error {
	changes := make([]changeView, len(cs.Changes))
	for i, c := range cs.Changes {
		changes[i] = viewChange(c)
	}

	inserted, deleted := diff.Stats(ops)

	switch format {
	case formatJSON:
		return writeJSON(w, struct {
			Ops      []opView     `json:"ops"`
			Changes  []changeView `json:"changes"`
			Inserted int          `json:"inserted"`
			Deleted  int          `json:"deleted"`
		}{viewOps(ops), changes, inserted, deleted})
	case formatText:
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ops:")
	for _, d := range ops {
		fmt.Fprintf(tw, "  %s\t%q\n", d.Op, d.Text)
	}
	fmt.Fprintln(tw, "changes:")
	for _, c := range changes {
		fmt.Fprintf(tw, "  %s\t%s\t[%d, %d)\t%s\n", c.ID, c.Kind, c.Start, c.End, describe(c))
	}
	fmt.Fprintf(tw, "+%d -%d bytes\n", inserted, deleted)
	return tw.Flush()
}
