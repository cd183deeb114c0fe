package tracking

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/event"
	"github.com/dshills/redline/internal/metrics"
)

// DefaultResolvedHistory is the default number of resolved changes kept.
const DefaultResolvedHistory = 1024

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithResolvedHistory sets how many resolved changes stay queryable.
// Zero disables the history.
func WithResolvedHistory(n int) StoreOption {
	return func(s *Store) {
		s.resolved = newHistory(n)
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records remap drops on the given collector.
func WithMetrics(m *metrics.Collector) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// RemapResult describes how an edit affected stored changes.
type RemapResult struct {
	// Shifted lists ids whose range moved.
	Shifted []string

	// Dropped holds the changes discarded because the edit touched them.
	Dropped []change.Change
}

// Store is the id-indexed collection of pending changes.
// All operations are thread-safe.
type Store struct {
	mu sync.RWMutex

	// active holds pending changes by id.
	active map[string]*change.Change

	// order holds pending changes sorted by range start, then end.
	// Non-conflicting ranges sorted this way also have non-decreasing ends.
	order []*change.Change

	resolved *history

	notifier *event.Notifier[event.StoreEvent]
	log      *slog.Logger
	metrics  *metrics.Collector
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		active:   make(map[string]*change.Change),
		resolved: newHistory(DefaultResolvedHistory),
		notifier: event.NewNotifier[event.StoreEvent](),
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "store")
	return s
}

// Subscribe registers fn for store updates. fn runs after the store lock is
// released and may query the store.
func (s *Store) Subscribe(fn func(event.StoreEvent)) *event.Subscription[event.StoreEvent] {
	return s.notifier.Subscribe(fn)
}

// Add inserts every change of cs, or none of them.
// It fails with *DuplicateIDError if an id is already known, including
// resolved ids still in history, and with *OverlapError if a change
// conflicts with a pending change or another member of cs.
func (s *Store) Add(cs change.ChangeSet) error {
	if len(cs.Changes) == 0 {
		return nil
	}

	incoming := make([]*change.Change, len(cs.Changes))
	for i := range cs.Changes {
		c := cs.Changes[i]
		if c.ID == "" {
			return errors.New("add change: empty id")
		}
		if !c.Range.IsValid() {
			return &CorruptRangeError{ID: c.ID, Range: c.Range, BufferLen: -1, Reason: "invalid range"}
		}
		if !c.IsPending() {
			return fmt.Errorf("add change %s: status %s: %w", c.ID, c.Status, change.ErrAlreadyResolved)
		}
		incoming[i] = &c
	}
	slices.SortStableFunc(incoming, compareChanges)

	s.mu.Lock()
	seen := make(map[string]struct{}, len(incoming))
	for _, c := range incoming {
		if _, dup := seen[c.ID]; dup || s.knownLocked(c.ID) {
			s.mu.Unlock()
			return &DuplicateIDError{ID: c.ID}
		}
		seen[c.ID] = struct{}{}
	}
	for i := 1; i < len(incoming); i++ {
		if err := overlapError(incoming[i-1], incoming[i]); err != nil {
			s.mu.Unlock()
			s.log.Warn("rejected change set", "error", err)
			return err
		}
	}
	for _, c := range incoming {
		if other := s.firstConflictLocked(c.Range); other != nil {
			err := overlapError(other, c)
			s.mu.Unlock()
			s.log.Warn("rejected change set", "error", err)
			return err
		}
	}

	ids := make([]string, len(incoming))
	for i, c := range incoming {
		s.active[c.ID] = c
		ids[i] = c.ID
	}
	s.order = append(s.order, incoming...)
	slices.SortStableFunc(s.order, compareChanges)
	s.mu.Unlock()

	s.log.Debug("added changes", "count", len(ids), "source", cs.Metadata.Source)
	s.notifier.Publish(event.StoreEvent{Type: event.StoreAdded, IDs: ids})
	return nil
}

// Remove deletes a change without resolving it. It reports whether the id
// was found; an absent id is not an error.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	c, ok := s.active[id]
	if !ok {
		removed := s.resolved.remove(id)
		s.mu.Unlock()
		return removed
	}
	delete(s.active, id)
	s.removeFromOrderLocked(c)
	s.mu.Unlock()

	s.notifier.Publish(event.StoreEvent{Type: event.StoreRemoved, IDs: []string{id}})
	return true
}

// Get returns a copy of the change with the given id. Resolved changes still
// in history are returned with their terminal status.
func (s *Store) Get(id string) (change.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.active[id]; ok {
		return *c, nil
	}
	if c, ok := s.resolved.get(id); ok {
		return c, nil
	}
	return change.Change{}, fmt.Errorf("change %q: %w", id, ErrNotFound)
}

// FindInRange returns pending changes intersecting [from, to), ordered by
// position. An empty query range matches changes containing that point and
// empty changes sitting on it.
func (s *Store) FindInRange(from, to buffer.ByteOffset) []change.Change {
	q := buffer.Range{Start: from, End: to}
	if !q.IsValid() {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Ends are non-decreasing, so skip everything ending before the query.
	i := sort.Search(len(s.order), func(i int) bool {
		return s.order[i].Range.End >= from
	})

	var out []change.Change
	for ; i < len(s.order); i++ {
		c := s.order[i]
		if c.Range.Start > to {
			break
		}
		if c.Range.Intersects(q) {
			out = append(out, *c)
		}
	}
	return out
}

// Remap translates stored ranges after the buffer range [editFrom, editTo)
// was replaced by insertedLen bytes.
func (s *Store) Remap(editFrom, editTo, insertedLen buffer.ByteOffset) RemapResult {
	var res RemapResult
	if editTo < editFrom || editFrom < 0 || insertedLen < 0 {
		return res
	}
	delta := insertedLen - (editTo - editFrom)

	s.mu.Lock()
	kept := s.order[:0]
	for _, c := range s.order {
		switch {
		case c.Range.End <= editFrom:
			kept = append(kept, c)
		case c.Range.Start >= editTo:
			if delta != 0 {
				c.Range = c.Range.Shift(delta)
				res.Shifted = append(res.Shifted, c.ID)
			}
			kept = append(kept, c)
		default:
			delete(s.active, c.ID)
			res.Dropped = append(res.Dropped, *c)
		}
	}
	clear(s.order[len(kept):])
	s.order = kept
	s.mu.Unlock()

	if len(res.Dropped) > 0 {
		dropped := make([]string, len(res.Dropped))
		for i, c := range res.Dropped {
			dropped[i] = c.ID
			s.log.Debug("dropped change", "id", c.ID, "range", c.Range.String(), "edit", buffer.Range{Start: editFrom, End: editTo}.String())
		}
		s.metrics.RemapDropped(len(dropped))
		s.notifier.Publish(event.StoreEvent{Type: event.StoreDropped, IDs: dropped})
	}
	if len(res.Shifted) > 0 {
		s.notifier.Publish(event.StoreEvent{Type: event.StoreShifted, IDs: slices.Clone(res.Shifted)})
	}
	return res
}

// Resolve moves a pending change to a terminal status and into history.
func (s *Store) Resolve(id string, status change.Status) (change.Change, error) {
	s.mu.Lock()
	c, ok := s.active[id]
	if !ok {
		prev, resolved := s.resolved.get(id)
		s.mu.Unlock()
		if resolved {
			return prev, fmt.Errorf("change %s is %s: %w", id, prev.Status, change.ErrAlreadyResolved)
		}
		return change.Change{}, fmt.Errorf("change %q: %w", id, ErrNotFound)
	}

	done, err := c.Resolve(status)
	if err != nil {
		s.mu.Unlock()
		return *c, err
	}
	delete(s.active, id)
	s.removeFromOrderLocked(c)
	s.resolved.push(done)
	s.mu.Unlock()

	s.notifier.Publish(event.StoreEvent{Type: event.StoreResolved, IDs: []string{id}})
	return done, nil
}

// Pending returns all pending changes ordered by position.
func (s *Store) Pending() []change.Change {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]change.Change, len(s.order))
	for i, c := range s.order {
		out[i] = *c
	}
	return out
}

// Resolved returns resolved changes still in history, oldest first.
func (s *Store) Resolved() []change.Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved.list()
}

// Len returns the number of pending changes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// Clear removes every change, pending and resolved.
func (s *Store) Clear() {
	s.mu.Lock()
	clear(s.active)
	s.order = nil
	s.resolved.reset()
	s.mu.Unlock()

	s.notifier.Publish(event.StoreEvent{Type: event.StoreCleared})
}

// Validate audits the store against a buffer of length bufferLen. It returns
// *CorruptRangeError for a range that does not fit and *OverlapError for two
// conflicting pending changes.
func (s *Store) Validate(bufferLen buffer.ByteOffset) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, c := range s.order {
		if !c.Range.Fits(bufferLen) {
			return &CorruptRangeError{ID: c.ID, Range: c.Range, BufferLen: bufferLen, Reason: "range exceeds buffer"}
		}
		if i > 0 {
			if err := overlapError(s.order[i-1], c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases observers.
func (s *Store) Close() {
	s.notifier.Close()
}

func (s *Store) knownLocked(id string) bool {
	_, ok := s.active[id]
	return ok || s.resolved.has(id)
}

// firstConflictLocked returns a pending change conflicting with r, if any.
func (s *Store) firstConflictLocked(r buffer.Range) *change.Change {
	i := sort.Search(len(s.order), func(i int) bool {
		return s.order[i].Range.End >= r.Start
	})
	for ; i < len(s.order); i++ {
		c := s.order[i]
		if c.Range.Start > r.End {
			break
		}
		if change.Conflicts(c.Range, r) {
			return c
		}
	}
	return nil
}

func (s *Store) removeFromOrderLocked(c *change.Change) {
	for i, o := range s.order {
		if o == c {
			s.order = slices.Delete(s.order, i, i+1)
			return
		}
	}
}

func overlapError(a, b *change.Change) error {
	if !change.Conflicts(a.Range, b.Range) {
		return nil
	}
	return &OverlapError{ID: b.ID, Range: b.Range, OtherID: a.ID, OtherRange: a.Range}
}

func compareChanges(a, b *change.Change) int {
	if c := cmp.Compare(a.Range.Start, b.Range.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.Range.End, b.Range.End)
}
