package event

import (
	"sync"
)

// Observer is called for every published event.
type Observer[E any] func(E)

// Subscription represents an active observer subscription.
type Subscription[E any] struct {
	id       uint64
	notifier *Notifier[E]
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription[E]) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages subscriptions for one event type.
type Notifier[E any] struct {
	mu        sync.RWMutex
	observers map[uint64]Observer[E]
	order     []uint64
	nextID    uint64

	async  bool
	buffer chan E
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Notifier.
type Option func(*options)

type options struct {
	asyncBuffer int
}

// WithAsync enables asynchronous delivery with the given buffer size.
// Publish blocks while the buffer is full.
func WithAsync(bufferSize int) Option {
	return func(o *options) {
		if bufferSize > 0 {
			o.asyncBuffer = bufferSize
		}
	}
}

// NewNotifier creates a notifier.
func NewNotifier[E any](opts ...Option) *Notifier[E] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	n := &Notifier[E]{
		observers: make(map[uint64]Observer[E]),
		done:      make(chan struct{}),
	}
	if o.asyncBuffer > 0 {
		n.async = true
		n.buffer = make(chan E, o.asyncBuffer)
		n.wg.Add(1)
		go n.processAsync()
	}
	return n
}

// Subscribe registers an observer. Observers are called in subscription
// order. A nil observer is ignored and yields an inert subscription.
func (n *Notifier[E]) Subscribe(observer Observer[E]) *Subscription[E] {
	if observer == nil {
		return &Subscription[E]{}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.observers[id] = observer
	n.order = append(n.order, id)

	return &Subscription[E]{id: id, notifier: n}
}

// Len returns the number of active subscriptions.
func (n *Notifier[E]) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// Publish delivers ev to all observers. Events published after Close are
// discarded.
func (n *Notifier[E]) Publish(ev E) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if n.async {
		select {
		case n.buffer <- ev:
		case <-n.done:
		}
		return
	}

	n.deliver(ev)
}

// Close stops async delivery after draining buffered events.
// It is safe to call Close multiple times.
func (n *Notifier[E]) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier[E]) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.observers[id]; !ok {
		return
	}
	delete(n.observers, id)
	for i, oid := range n.order {
		if oid == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

func (n *Notifier[E]) deliver(ev E) {
	n.mu.RLock()
	observers := make([]Observer[E], 0, len(n.order))
	for _, id := range n.order {
		observers = append(observers, n.observers[id])
	}
	n.mu.RUnlock()

	// Call observers outside the lock so they may subscribe or unsubscribe.
	for _, obs := range observers {
		obs(ev)
	}
}

func (n *Notifier[E]) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case ev := <-n.buffer:
			n.deliver(ev)
		case <-n.done:
			for {
				select {
				case ev := <-n.buffer:
					n.deliver(ev)
				default:
					return
				}
			}
		}
	}
}
