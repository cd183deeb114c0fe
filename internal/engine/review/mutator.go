package review

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/engine/tracking"
	"github.com/dshills/redline/internal/event"
	"github.com/dshills/redline/internal/metrics"
)

// Outcome is the result of resolving one change.
type Outcome struct {
	// Change is the change after the transition.
	Change change.Change

	// Edit is the buffer edit performed, nil when the decision needed none.
	Edit *buffer.EditResult
}

// Failure is a change a batch could not apply.
type Failure struct {
	Change change.Change
	Err    error
}

// BatchResult reports what a batch operation did.
type BatchResult struct {
	// Succeeded holds resolved changes in the order they were applied.
	Succeeded []change.Change

	// Skipped holds ids that were no longer pending when reached.
	Skipped []string

	// Failures holds changes left pending because they could not be applied.
	Failures []Failure
}

// Total returns the number of changes the batch visited.
func (r BatchResult) Total() int {
	return len(r.Succeeded) + len(r.Skipped) + len(r.Failures)
}

// Option configures a Mutator.
type Option func(*Mutator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mutator) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics records resolutions on the given collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Mutator) {
		m.metrics = c
	}
}

// WithNotifier publishes status transitions on n instead of a private
// synchronous notifier.
func WithNotifier(n *event.Notifier[event.StatusEvent]) Option {
	return func(m *Mutator) {
		if n != nil {
			m.notifier = n
		}
	}
}

// Mutator resolves changes against a buffer.
// Callers serialize calls with any other mutation of the buffer or store.
type Mutator struct {
	buf      *buffer.Buffer
	store    *tracking.Store
	log      *slog.Logger
	metrics  *metrics.Collector
	notifier *event.Notifier[event.StatusEvent]
}

// New creates a mutator over buf and store.
func New(buf *buffer.Buffer, store *tracking.Store, opts ...Option) *Mutator {
	m := &Mutator{
		buf:   buf,
		store: store,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = event.NewNotifier[event.StatusEvent]()
	}
	m.log = m.log.With("component", "review")
	return m
}

// Subscribe registers fn for status transitions.
func (m *Mutator) Subscribe(fn func(event.StatusEvent)) *event.Subscription[event.StatusEvent] {
	return m.notifier.Subscribe(fn)
}

// Accept accepts the change with the given id.
func (m *Mutator) Accept(id string) (Outcome, error) {
	return m.resolve(id, change.StatusAccepted)
}

// Reject rejects the change with the given id.
func (m *Mutator) Reject(id string) (Outcome, error) {
	return m.resolve(id, change.StatusRejected)
}

// AcceptAll accepts every pending change.
func (m *Mutator) AcceptAll() (BatchResult, error) {
	return m.resolveAll(change.StatusAccepted)
}

// RejectAll rejects every pending change.
func (m *Mutator) RejectAll() (BatchResult, error) {
	return m.resolveAll(change.StatusRejected)
}

func (m *Mutator) resolve(id string, status change.Status) (Outcome, error) {
	c, err := m.store.Get(id)
	if err != nil {
		return Outcome{}, err
	}
	if !c.IsPending() {
		m.log.Info("change already resolved", "id", id, "status", c.Status.String())
		return Outcome{Change: c}, fmt.Errorf("%s change %s: %w", status, id, ErrAlreadyResolved)
	}

	if err := m.check(c); err != nil {
		m.metrics.CorruptRange()
		m.log.Warn("change could not be applied", "id", id, "error", err)
		return Outcome{Change: c}, err
	}

	var result *buffer.EditResult
	if edit, ok := editFor(c, status); ok {
		res, err := m.buf.ApplyEdit(edit)
		if err != nil {
			m.metrics.CorruptRange()
			return Outcome{Change: c}, &CorruptRangeError{ID: id, Range: c.Range, BufferLen: m.buf.Len(), Reason: err.Error()}
		}
		result = &res
	}

	done, err := m.store.Resolve(id, status)
	if err != nil {
		if result != nil {
			if _, rerr := m.buf.ApplyEdit(result.Revert()); rerr != nil {
				return Outcome{Change: c}, errors.Join(err, fmt.Errorf("revert edit for %s: %w", id, rerr))
			}
		}
		return Outcome{Change: c}, err
	}

	if result != nil {
		m.store.Remap(result.OldRange.Start, result.OldRange.End, result.NewRange.Len())
	}

	m.metrics.ChangeResolved(done.Kind.String(), done.Status.String())
	m.log.Debug("change resolved", "id", id, "kind", done.Kind.String(), "status", done.Status.String())
	m.notifier.Publish(event.StatusEvent{
		ChangeID: id,
		Status:   done.Status.String(),
		Pending:  m.store.Len(),
	})

	return Outcome{Change: done, Edit: result}, nil
}

// check verifies the buffer still holds the text the change expects.
func (m *Mutator) check(c change.Change) error {
	n := m.buf.Len()
	if !c.Range.Fits(n) {
		return &CorruptRangeError{ID: c.ID, Range: c.Range, BufferLen: n, Reason: "range exceeds buffer"}
	}
	if got := m.buf.TextRange(c.Range.Start, c.Range.End); got != c.ExpectedText() {
		return &CorruptRangeError{ID: c.ID, Range: c.Range, BufferLen: n, Reason: fmt.Sprintf("buffer holds %q, want %q", got, c.ExpectedText())}
	}
	return nil
}

// editFor returns the buffer edit that applies a decision, if any.
func editFor(c change.Change, status change.Status) (buffer.Edit, bool) {
	accept := status == change.StatusAccepted
	switch c.Kind {
	case change.KindAddition:
		if accept {
			return buffer.Edit{}, false
		}
		return buffer.NewDelete(c.Range.Start, c.Range.End), true
	case change.KindDeletion:
		if accept {
			return buffer.NewDelete(c.Range.Start, c.Range.End), true
		}
		return buffer.Edit{}, false
	case change.KindModification:
		if accept {
			return buffer.NewEdit(c.Range, c.SuggestedText), true
		}
		return buffer.Edit{}, false
	default:
		panic(fmt.Sprintf("review: unknown change kind %d", c.Kind))
	}
}

func (m *Mutator) resolveAll(status change.Status) (BatchResult, error) {
	pending := m.store.Pending()
	slices.SortFunc(pending, descending)

	var res BatchResult
	for _, c := range pending {
		out, err := m.resolve(c.ID, status)
		switch {
		case err == nil:
			res.Succeeded = append(res.Succeeded, out.Change)
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyResolved):
			res.Skipped = append(res.Skipped, c.ID)
		default:
			res.Failures = append(res.Failures, Failure{Change: c, Err: err})
		}
	}

	m.log.Info("batch resolved",
		"status", status.String(),
		"visited", res.Total(),
		"succeeded", len(res.Succeeded),
		"skipped", len(res.Skipped),
		"failed", len(res.Failures),
	)

	if len(res.Failures) > 0 && len(res.Failures) == len(pending) {
		return res, fmt.Errorf("%w: %d changes: %w", ErrBatchFailed, len(res.Failures), res.Failures[0].Err)
	}
	return res, nil
}

// descending orders changes by start, then end, highest first.
func descending(a, b change.Change) int {
	if c := cmp.Compare(b.Range.Start, a.Range.Start); c != 0 {
		return c
	}
	return cmp.Compare(b.Range.End, a.Range.End)
}
