package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/engine/diff"
	"github.com/dshills/redline/internal/engine/review"
	"github.com/dshills/redline/internal/engine/tracking"
	"github.com/dshills/redline/internal/event"
	"github.com/dshills/redline/internal/metrics"
	"github.com/dshills/redline/internal/renderer/overlay"
	"github.com/dshills/redline/internal/suggestion"
)

// Re-export commonly used types for convenience.
type (
	// ByteOffset is a byte position in the buffer.
	ByteOffset = buffer.ByteOffset

	// Range is a half-open byte range in the buffer.
	Range = buffer.Range

	// Point is a line and column position.
	Point = buffer.Point

	// Change is a tracked suggestion change.
	Change = change.Change

	// ChangeSet is the output of one suggestion.
	ChangeSet = change.ChangeSet

	// Metadata is the provenance of a suggestion.
	Metadata = change.Metadata

	// Decoration is a render descriptor for a pending change.
	Decoration = overlay.Decoration

	// Outcome is the result of a single accept or reject.
	Outcome = review.Outcome

	// BatchResult is the result of accept all or reject all.
	BatchResult = review.BatchResult

	// RemapResult describes how a user edit moved pending changes.
	RemapResult = tracking.RemapResult

	// StatusEvent reports a change reaching a terminal status.
	StatusEvent = event.StatusEvent
)

// Engine is a suggestion review session over one document.
// All operations are thread-safe.
type Engine struct {
	mu sync.Mutex

	buf       *buffer.Buffer
	store     *tracking.Store
	mutator   *review.Mutator
	projector *overlay.Projector
	builder   *change.Builder
	worker    *diff.Worker
	status    *event.Notifier[event.StatusEvent]
	closed    bool

	// Configuration
	log             *slog.Logger
	metrics         *metrics.Collector
	ids             change.IDGenerator
	differ          *diff.Differ
	clock           func() time.Time
	resolvedHistory int
	asyncEvents     int
	normalize       bool
	maxPreview      int

	// Initialization
	initContent string
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:             slog.New(slog.DiscardHandler),
		ids:             change.UUIDGenerator{},
		clock:           time.Now,
		resolvedHistory: DefaultResolvedHistory,
		normalize:       true,
		maxPreview:      DefaultMaxLabelPreview,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.differ == nil {
		e.differ = diff.New(diff.WithMetrics(e.metrics))
	}

	var notifyOpts []event.Option
	if e.asyncEvents > 0 {
		notifyOpts = append(notifyOpts, event.WithAsync(e.asyncEvents))
	}
	e.status = event.NewNotifier[event.StatusEvent](notifyOpts...)

	e.buf = buffer.NewBufferFromString(e.initContent)
	e.store = tracking.NewStore(
		tracking.WithResolvedHistory(e.resolvedHistory),
		tracking.WithLogger(e.log),
		tracking.WithMetrics(e.metrics),
	)
	e.mutator = review.New(e.buf, e.store,
		review.WithLogger(e.log),
		review.WithMetrics(e.metrics),
		review.WithNotifier(e.status),
	)
	e.projector = overlay.NewProjector(e.store, overlay.WithMaxLabelPreview(e.maxPreview))
	e.builder = change.NewBuilder(e.ids)
	e.worker = diff.NewWorker(e.differ)
	e.log = e.log.With("component", "engine")

	return e
}

// ============================================================================
// Suggestions
// ============================================================================

// Suggest ingests one suggestion payload. The payload's original text must
// still be at its position. Its diff becomes tracked changes; suggested
// additions are inserted into the buffer.
//
// The diff runs without holding the engine lock. If the document changed
// meanwhile the payload is checked again, and a newer suggestion for the
// same region makes this one fail with diff.ErrStale.
func (e *Engine) Suggest(ctx context.Context, p suggestion.Payload, meta change.Metadata) (change.ChangeSet, error) {
	if e.normalize {
		p = suggestion.Normalize(p)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return change.ChangeSet{}, ErrClosed
	}
	rev := e.buf.RevisionID()
	err := e.checkPayloadLocked(p)
	e.mu.Unlock()
	if err != nil {
		return change.ChangeSet{}, err
	}

	ops, err := e.worker.Diff(ctx, regionKey(p.Position), p.OriginalText, p.SuggestedText)
	if err != nil {
		return change.ChangeSet{}, fmt.Errorf("diff suggestion: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return change.ChangeSet{}, ErrClosed
	}
	if e.buf.RevisionID() != rev {
		if err := e.checkPayloadLocked(p); err != nil {
			return change.ChangeSet{}, err
		}
	}

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = e.clock()
	}
	if !diff.HasChanges(ops) {
		return change.ChangeSet{Metadata: meta}, nil
	}
	return e.ingestLocked(e.builder.BuildAt(ops, buffer.ByteOffset(p.Position.Start), meta))
}

// SuggestDocument ingests a rewrite of the whole document.
func (e *Engine) SuggestDocument(ctx context.Context, suggested string, meta change.Metadata) (change.ChangeSet, error) {
	original := e.buf.Text()
	return e.Suggest(ctx, suggestion.Payload{
		OriginalText:  original,
		SuggestedText: suggested,
		Position:      suggestion.Position{Start: 0, End: len(original)},
	}, meta)
}

// checkPayloadLocked validates p against the current buffer and pending
// changes.
func (e *Engine) checkPayloadLocked(p suggestion.Payload) error {
	if err := p.Validate(int(e.buf.Len())); err != nil {
		return err
	}

	span := buffer.Range{Start: buffer.ByteOffset(p.Position.Start), End: buffer.ByteOffset(p.Position.End)}
	if got := e.buf.TextRange(span.Start, span.End); got != p.OriginalText {
		return fmt.Errorf("%w: %s holds %q, want %q", ErrStaleSuggestion, span, got, p.OriginalText)
	}

	for _, c := range e.store.FindInRange(span.Start, span.End) {
		if change.Conflicts(c.Range, span) {
			return &tracking.OverlapError{ID: "suggestion", Range: span, OtherID: c.ID, OtherRange: c.Range}
		}
	}
	return nil
}

// ingestLocked materializes the additions of cs in the buffer and adds the
// changes to the store. cs is in pre-insertion coordinates. On failure the
// buffer and store are left as they were.
func (e *Engine) ingestLocked(cs change.ChangeSet) (change.ChangeSet, error) {
	if err := cs.Validate(); err != nil {
		return change.ChangeSet{}, fmt.Errorf("build change set: %w", err)
	}

	out := change.ChangeSet{
		Changes:  make([]change.Change, len(cs.Changes)),
		Metadata: cs.Metadata,
	}

	var inserts []buffer.Edit
	var shift buffer.ByteOffset
	for i, c := range cs.Changes {
		c.Range = c.Range.Shift(shift)
		if c.Kind == change.KindAddition {
			n := buffer.ByteOffset(len(c.SuggestedText))
			inserts = append(inserts, buffer.NewInsert(cs.Changes[i].Range.Start, c.SuggestedText))
			c.Range.End = c.Range.Start + n
			shift += n
		}
		out.Changes[i] = c
	}

	// Insert right to left so earlier offsets stay valid. Pending changes
	// after each insertion point move with it.
	var applied []buffer.EditResult
	for i := len(inserts) - 1; i >= 0; i-- {
		res, err := e.buf.ApplyEdit(inserts[i])
		if err != nil {
			e.rollbackLocked(applied)
			return change.ChangeSet{}, fmt.Errorf("materialize addition: %s: %w", inserts[i], err)
		}
		e.store.Remap(res.OldRange.Start, res.OldRange.End, res.NewRange.Len())
		applied = append(applied, res)
	}

	if err := e.store.Add(out); err != nil {
		e.rollbackLocked(applied)
		return change.ChangeSet{}, err
	}

	for _, c := range out.Changes {
		e.metrics.ChangeIngested(c.Kind.String())
	}
	e.log.Info("suggestion ingested",
		"changes", out.Len(),
		"ids", out.IDs(),
		"author", out.Metadata.Author,
		"source", out.Metadata.Source,
	)
	return out, nil
}

// rollbackLocked reverts materialized insertions in reverse order of
// application.
func (e *Engine) rollbackLocked(applied []buffer.EditResult) {
	for i := len(applied) - 1; i >= 0; i-- {
		res := applied[i]
		if _, err := e.buf.ApplyEdit(res.Revert()); err != nil {
			e.log.Error("rollback failed", "range", res.NewRange.String(), "error", err)
			return
		}
		e.store.Remap(res.NewRange.Start, res.NewRange.End, 0)
	}
}

func regionKey(p suggestion.Position) string {
	return strconv.Itoa(p.Start) + ":" + strconv.Itoa(p.End)
}

// ============================================================================
// User Edits
// ============================================================================

// Edit replaces [from, to) with text as a user edit. Pending changes after
// the edit move; changes the edit touches are dropped.
func (e *Engine) Edit(from, to ByteOffset, text string) (RemapResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return RemapResult{}, ErrClosed
	}
	res, err := e.buf.ApplyEdit(buffer.NewEdit(buffer.Range{Start: from, End: to}, text))
	if err != nil {
		return RemapResult{}, fmt.Errorf("edit %s: %w", buffer.Range{Start: from, End: to}, err)
	}
	remap := e.store.Remap(res.OldRange.Start, res.OldRange.End, res.NewRange.Len())
	if len(remap.Dropped) > 0 {
		e.log.Debug("edit dropped changes", "count", len(remap.Dropped))
	}
	return remap, nil
}

// ============================================================================
// Review
// ============================================================================

// Accept accepts one change.
func (e *Engine) Accept(id string) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return Outcome{}, ErrClosed
	}
	return e.mutator.Accept(id)
}

// Reject rejects one change.
func (e *Engine) Reject(id string) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return Outcome{}, ErrClosed
	}
	return e.mutator.Reject(id)
}

// AcceptAll accepts every pending change.
func (e *Engine) AcceptAll() (BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return BatchResult{}, ErrClosed
	}
	return e.mutator.AcceptAll()
}

// RejectAll rejects every pending change.
func (e *Engine) RejectAll() (BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return BatchResult{}, ErrClosed
	}
	return e.mutator.RejectAll()
}

// SubscribeStatus registers fn for accept and reject transitions.
func (e *Engine) SubscribeStatus(fn func(StatusEvent)) *event.Subscription[event.StatusEvent] {
	return e.status.Subscribe(fn)
}

// ============================================================================
// Read Operations
// ============================================================================

// Text returns the buffer content.
func (e *Engine) Text() string {
	return e.buf.Text()
}

// Len returns the buffer length in bytes.
func (e *Engine) Len() ByteOffset {
	return e.buf.Len()
}

// Point converts a byte offset to line and column.
func (e *Engine) Point(offset ByteOffset) Point {
	return e.buf.OffsetToPoint(offset)
}

// Changes returns pending changes ordered by position.
func (e *Engine) Changes() []Change {
	return e.store.Pending()
}

// Resolved returns recently resolved changes, oldest first.
func (e *Engine) Resolved() []Change {
	return e.store.Resolved()
}

// Get returns a change by id, pending or recently resolved.
func (e *Engine) Get(id string) (Change, error) {
	return e.store.Get(id)
}

// ChangesInRange returns pending changes intersecting [from, to).
func (e *Engine) ChangesInRange(from, to ByteOffset) []Change {
	return e.store.FindInRange(from, to)
}

// Decorations returns render descriptors for pending changes ordered by
// position.
func (e *Engine) Decorations() []Decoration {
	return e.projector.Decorations()
}

// DecorationsInRange returns render descriptors intersecting [from, to),
// ordered by position.
func (e *Engine) DecorationsInRange(from, to ByteOffset) []Decoration {
	return e.projector.InRange(from, to)
}

// DecorationsFor returns the render descriptors of one pending change.
func (e *Engine) DecorationsFor(id string) []Decoration {
	return e.projector.ForChange(id)
}

// Check audits pending changes against the buffer.
func (e *Engine) Check() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Validate(e.buf.Len())
}

// Clear drops every tracked change. Materialized additions stay in the
// buffer as plain text.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Clear()
}

// Close releases observers. Further mutations return ErrClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.projector.Close()
	e.store.Close()
	e.status.Close()
}
