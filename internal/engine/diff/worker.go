package diff

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrStale is returned by Worker.Diff when a newer request for the same key
// was issued while the diff was running. The result must be discarded.
var ErrStale = errors.New("diff result superseded by a newer request")

// Worker runs diffs off the caller's goroutine.
//
// Requests are keyed by document region. Each request bumps the key's
// generation; a request whose generation is no longer current when its diff
// finishes gets ErrStale instead of a result. A key is tracked only while a
// request for it is outstanding. Identical concurrent requests share one
// computation.
type Worker struct {
	compute func(original, suggested string) []Diff
	flight  singleflight.Group

	mu   sync.Mutex
	seq  uint64
	gens map[string]uint64
}

// NewWorker creates a worker around d. A nil d uses New().
func NewWorker(d *Differ) *Worker {
	if d == nil {
		d = New()
	}
	return &Worker{
		compute: d.Diff,
		gens:    make(map[string]uint64),
	}
}

// Diff computes the diff between original and suggested for the region key.
// It blocks until the diff completes, the request goes stale, or ctx is done.
func (w *Worker) Diff(ctx context.Context, key, original, suggested string) ([]Diff, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gen := w.begin(key)

	ch := w.flight.DoChan(flightKey(original, suggested), func() (any, error) {
		return w.compute(original, suggested), nil
	})

	select {
	case <-ctx.Done():
		w.finish(key, gen)
		return nil, ctx.Err()
	case res := <-ch:
		if !w.finish(key, gen) {
			return nil, ErrStale
		}
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]Diff)
		out := make([]Diff, len(shared))
		copy(out, shared)
		return out, nil
	}
}

func (w *Worker) begin(key string) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	w.gens[key] = w.seq
	return w.seq
}

// finish ends request gen for key. It reports whether gen was still the
// newest request and, if so, releases the key.
func (w *Worker) finish(key string, gen uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gens[key] != gen {
		return false
	}
	delete(w.gens, key)
	return true
}

func flightKey(original, suggested string) string {
	h := sha256.New()
	h.Write(binary.BigEndian.AppendUint64(nil, uint64(len(original))))
	h.Write([]byte(original))
	h.Write([]byte(suggested))
	return hex.EncodeToString(h.Sum(nil))
}
