package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dshills/redline/internal/engine"
	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/engine/review"
	"github.com/dshills/redline/internal/engine/tracking"
	"github.com/dshills/redline/internal/metrics"
	"github.com/dshills/redline/internal/suggestion"
)

// errFailures is returned after the report when some decision failed.
var errFailures = errors.New("some changes could not be resolved")

type reviewOptions struct {
	doc         string
	suggestions string
	output      string
	format      string
	seqIDs      bool

	accept    []string
	reject    []string
	acceptAll bool
	rejectAll bool
}

func newReviewCmd(c *cli) *cobra.Command {
	opts := &reviewOptions{}

	cmd := &cobra.Command{
		Use:   "review --suggestions FILE [--doc FILE]",
		Short: "Ingest suggestions and accept or reject the resulting changes",
		Long: `review loads a document and a JSON or YAML suggestion file, turns every
suggestion into tracked changes and applies the requested decisions.
Without decisions it prints the pending changes and their decorations.`,
		Example: `  redline review --doc draft.md --suggestions ai.json
  redline review --doc draft.md --suggestions ai.yaml --seq-ids --accept c3 --reject-all
  redline review --doc draft.md --suggestions ai.json --accept-all -o final.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.seqIDs && c.cfg.Suggestion.IDPrefix == "" {
				c.cfg.Suggestion.IDPrefix = "c"
			}

			rep, err := c.review(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), opts.format, rep); err != nil {
				return err
			}
			if opts.output != "" {
				if err := os.WriteFile(opts.output, []byte(rep.Text), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", opts.output, err)
				}
			}
			if len(rep.Failures) > 0 {
				return fmt.Errorf("%w: %d failed", errFailures, len(rep.Failures))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.doc, "doc", "d", "", "document file (defaults to the document in the suggestion file)")
	flags.StringVarP(&opts.suggestions, "suggestions", "s", "", "JSON or YAML suggestion file")
	flags.StringVarP(&opts.output, "output", "o", "", "write the resulting document to this file")
	flags.StringVar(&opts.format, "format", formatText, "output format (text, json)")
	flags.BoolVar(&opts.seqIDs, "seq-ids", false, "number changes c1, c2, ... instead of using UUIDs")
	flags.StringSliceVar(&opts.accept, "accept", nil, "accept the change with this id (repeatable)")
	flags.StringSliceVar(&opts.reject, "reject", nil, "reject the change with this id (repeatable)")
	flags.BoolVar(&opts.acceptAll, "accept-all", false, "accept every remaining change")
	flags.BoolVar(&opts.rejectAll, "reject-all", false, "reject every remaining change")

	_ = cmd.MarkFlagRequired("suggestions")
	cmd.MarkFlagsMutuallyExclusive("accept-all", "reject-all")
	return cmd
}

// review runs one ingest-and-decide pass and reports the outcome.
func (c *cli) review(ctx context.Context, opts *reviewOptions, m *metrics.Collector) (*report, error) {
	file, err := suggestion.DecodeFile(opts.suggestions)
	if err != nil {
		return nil, err
	}

	content := file.Document
	if opts.doc != "" {
		if content, err = readText(opts.doc); err != nil {
			return nil, err
		}
	}

	eng := c.newEngine(content, m)
	defer eng.Close()
	sub := eng.SubscribeStatus(func(ev engine.StatusEvent) {
		c.log.Debug("change status", "id", ev.ChangeID, "status", ev.Status, "pending", ev.Pending)
	})
	defer sub.Unsubscribe()

	rep := &report{Document: content}
	if err := c.ingest(ctx, eng, file, rep); err != nil {
		return nil, err
	}
	for _, ch := range eng.Changes() {
		rep.Ingested = append(rep.Ingested, viewChange(ch))
	}

	decide := func(id string, fn func(string) (engine.Outcome, error)) {
		out, err := fn(id)
		if err != nil {
			rep.Failures = append(rep.Failures, failureView{ID: id, Error: err.Error()})
			return
		}
		rep.Resolved = append(rep.Resolved, viewChange(out.Change))
	}
	for _, id := range opts.accept {
		decide(id, eng.Accept)
	}
	for _, id := range opts.reject {
		decide(id, eng.Reject)
	}

	var batch engine.BatchResult
	switch {
	case opts.acceptAll:
		batch, err = eng.AcceptAll()
	case opts.rejectAll:
		batch, err = eng.RejectAll()
	}
	if err != nil && !errors.Is(err, review.ErrBatchFailed) {
		return nil, err
	}
	for _, ch := range batch.Succeeded {
		rep.Resolved = append(rep.Resolved, viewChange(ch))
	}
	for _, f := range batch.Failures {
		rep.Failures = append(rep.Failures, failureView{ID: f.Change.ID, Error: f.Err.Error()})
	}
	if err := eng.Check(); err != nil {
		return nil, fmt.Errorf("audit pending changes: %w", err)
	}

	for _, ch := range eng.Changes() {
		v := viewChange(ch)
		v.Position = eng.Point(ch.Range.Start).String()
		rep.Pending = append(rep.Pending, v)
	}
	for _, d := range eng.Decorations() {
		rep.Decorations = append(rep.Decorations, viewDecoration(d))
	}
	rep.Text = eng.Text()
	return rep, nil
}

// ingest feeds the file's suggestions to eng. Positions refer to the
// original document, so suggestions are applied right to left where
// earlier materialized additions cannot move them. Suggestions that no
// longer fit are reported as skipped.
func (c *cli) ingest(ctx context.Context, eng *engine.Engine, file suggestion.File, rep *report) error {
	order := make([]int, len(file.Suggestions))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		pa, pb := file.Suggestions[a].Position, file.Suggestions[b].Position
		if n := cmp.Compare(pb.Start, pa.Start); n != 0 {
			return n
		}
		return cmp.Compare(pb.End, pa.End)
	})

	for _, i := range order {
		p := file.Suggestions[i]
		author := file.AuthorOf(p)
		if author == "" {
			author = c.cfg.Suggestion.Author
		}

		_, err := eng.Suggest(ctx, p, change.Metadata{Author: author, Source: file.Source})
		switch {
		case err == nil:
		case isSkippable(err):
			c.log.Warn("suggestion skipped", "index", i, "error", err)
			rep.Skipped = append(rep.Skipped, skippedView{
				Index: i,
				Start: p.Position.Start,
				End:   p.Position.End,
				Error: err.Error(),
			})
		default:
			return fmt.Errorf("suggestion %d: %w", i, err)
		}
	}

	slices.SortFunc(rep.Skipped, func(a, b skippedView) int { return cmp.Compare(a.Index, b.Index) })
	return nil
}

// isSkippable reports errors caused by one bad suggestion rather than the
// session.
func isSkippable(err error) bool {
	return errors.Is(err, engine.ErrStaleSuggestion) ||
		errors.Is(err, tracking.ErrOverlapViolation) ||
		errors.Is(err, suggestion.ErrOutOfRange) ||
		errors.Is(err, suggestion.ErrInvalidPayload)
}
