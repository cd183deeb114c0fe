package overlay

import (
	"slices"
	"sync"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/event"
)

// Source is the read side of a change store.
type Source interface {
	Get(id string) (change.Change, error)
	Pending() []change.Change
	Subscribe(fn func(event.StoreEvent)) *event.Subscription[event.StoreEvent]
}

// Option configures a Projector.
type Option func(*Projector)

// WithMaxLabelPreview sets how many grapheme clusters a label previews.
func WithMaxLabelPreview(n int) Option {
	return func(p *Projector) {
		if n >= 0 {
			p.maxPreview = n
		}
	}
}

// Projector maintains decorations for the pending changes of a Source.
type Projector struct {
	mu         sync.RWMutex
	src        Source
	cache      map[string][]Decoration
	sorted     []Decoration
	dirty      bool
	maxPreview int
	sub        *event.Subscription[event.StoreEvent]
}

// NewProjector creates a projector over src and subscribes to its updates.
func NewProjector(src Source, opts ...Option) *Projector {
	p := &Projector{
		src:        src,
		cache:      make(map[string][]Decoration),
		maxPreview: DefaultMaxLabelPreview,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.Refresh()
	p.sub = src.Subscribe(p.Handle)
	return p
}

// Refresh recomputes every decoration from the source.
func (p *Projector) Refresh() {
	pending := p.src.Pending()

	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.cache)
	for _, c := range pending {
		p.cache[c.ID] = Project(c, p.maxPreview)
	}
	p.dirty = true
}

// Handle applies a store event, touching only the ids it names.
func (p *Projector) Handle(ev event.StoreEvent) {
	switch ev.Type {
	case event.StoreCleared:
		p.mu.Lock()
		clear(p.cache)
		p.dirty = true
		p.mu.Unlock()
	case event.StoreAdded, event.StoreShifted:
		updated := make(map[string][]Decoration, len(ev.IDs))
		for _, id := range ev.IDs {
			c, err := p.src.Get(id)
			if err != nil || !c.IsPending() {
				updated[id] = nil
				continue
			}
			updated[id] = Project(c, p.maxPreview)
		}
		p.mu.Lock()
		for id, decs := range updated {
			if decs == nil {
				delete(p.cache, id)
			} else {
				p.cache[id] = decs
			}
		}
		p.dirty = true
		p.mu.Unlock()
	case event.StoreRemoved, event.StoreDropped, event.StoreResolved:
		p.mu.Lock()
		for _, id := range ev.IDs {
			delete(p.cache, id)
		}
		p.dirty = true
		p.mu.Unlock()
	}
}

// Decorations returns all decorations ordered by position.
func (p *Projector) Decorations() []Decoration {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ensureSortedLocked()
	return slices.Clone(p.sorted)
}

// ForChange returns the decorations of one change.
func (p *Projector) ForChange(id string) []Decoration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.cache[id])
}

// InRange returns decorations intersecting [from, to), ordered by position.
func (p *Projector) InRange(from, to buffer.ByteOffset) []Decoration {
	q := buffer.Range{Start: from, End: to}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.ensureSortedLocked()
	var out []Decoration
	for _, d := range p.sorted {
		if d.Range.Start > to {
			break
		}
		if d.Range.Intersects(q) {
			out = append(out, d)
		}
	}
	return out
}

// Close stops following the source.
func (p *Projector) Close() {
	p.sub.Unsubscribe()
}

func (p *Projector) ensureSortedLocked() {
	if !p.dirty && p.sorted != nil {
		return
	}
	p.sorted = p.sorted[:0]
	for _, decs := range p.cache {
		p.sorted = append(p.sorted, decs...)
	}
	slices.SortFunc(p.sorted, less)
	p.dirty = false
}
