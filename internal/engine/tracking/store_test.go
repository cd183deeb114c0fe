package tracking

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/event"
	"github.com/dshills/redline/internal/metrics"
)

func mk(id string, kind change.Kind, start, end buffer.ByteOffset) change.Change {
	c := change.Change{ID: id, Kind: kind, Range: buffer.NewRange(start, end)}
	switch kind {
	case change.KindAddition:
		c.SuggestedText = "+"
	case change.KindDeletion:
		c.OriginalText = "-"
	case change.KindModification:
		c.OriginalText, c.SuggestedText = "-", "+"
	}
	return c
}

func set(changes ...change.Change) change.ChangeSet {
	return change.ChangeSet{Changes: changes}
}

func ids(changes []change.Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.ID
	}
	return out
}

func TestStoreAddAndGet(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Add(set(
		mk("b", change.KindDeletion, 10, 14),
		mk("a", change.KindModification, 4, 7),
	)))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, ids(s.Pending()), "pending is ordered by position")

	c, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, buffer.NewRange(4, 7), c.Range)

	_, err = s.Get("zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreAddDuplicate(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 2))))

	err := s.Add(set(mk("x", change.KindDeletion, 5, 6), mk("a", change.KindDeletion, 8, 9)))

	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.ID)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, s.Len(), "failed add inserts nothing")
	_, err = s.Get("x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreAddDuplicateWithinSet(t *testing.T) {
	s := NewStore()

	err := s.Add(set(mk("a", change.KindDeletion, 0, 1), mk("a", change.KindDeletion, 3, 4)))

	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 0, s.Len())
}

func TestStoreAddResolvedIDIsDuplicate(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 1))))
	_, err := s.Resolve("a", change.StatusAccepted)
	require.NoError(t, err)

	err = s.Add(set(mk("a", change.KindDeletion, 0, 1)))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestStoreAddOverlap(t *testing.T) {
	tests := []struct {
		name     string
		existing []change.Change
		incoming []change.Change
	}{
		{
			name:     "against pending",
			existing: []change.Change{mk("a", change.KindDeletion, 2, 6)},
			incoming: []change.Change{mk("b", change.KindDeletion, 5, 8)},
		},
		{
			name:     "within set",
			incoming: []change.Change{mk("a", change.KindDeletion, 2, 6), mk("b", change.KindAddition, 3, 4)},
		},
		{
			name:     "contained",
			existing: []change.Change{mk("a", change.KindDeletion, 0, 20)},
			incoming: []change.Change{mk("b", change.KindDeletion, 5, 6)},
		},
		{
			name:     "empty inside pending",
			existing: []change.Change{mk("a", change.KindDeletion, 0, 20)},
			incoming: []change.Change{mk("b", change.KindAddition, 5, 5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			require.NoError(t, s.Add(set(tt.existing...)))

			err := s.Add(set(tt.incoming...))

			var oe *OverlapError
			require.ErrorAs(t, err, &oe)
			assert.ErrorIs(t, err, ErrOverlapViolation)
			assert.Equal(t, len(tt.existing), s.Len())
		})
	}
}

func TestStoreAddAdjacentIsAllowed(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 3), mk("b", change.KindAddition, 3, 6))))
	require.NoError(t, s.Add(set(mk("c", change.KindDeletion, 6, 9))))
	assert.NoError(t, s.Validate(9))
}

func TestStoreAddRejectsBadInput(t *testing.T) {
	s := NewStore()

	assert.Error(t, s.Add(set(change.Change{Range: buffer.NewRange(0, 1)})))
	assert.ErrorIs(t, s.Add(set(change.Change{ID: "a", Range: buffer.NewRange(3, 1)})), ErrCorruptRange)

	resolved := mk("r", change.KindDeletion, 0, 1)
	resolved.Status = change.StatusAccepted
	assert.ErrorIs(t, s.Add(set(resolved)), change.ErrAlreadyResolved)

	assert.NoError(t, s.Add(change.ChangeSet{}))
	assert.Equal(t, 0, s.Len())
}

func TestStoreRemove(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 2), mk("b", change.KindDeletion, 4, 6))))

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.False(t, s.Remove("nope"))
	assert.Equal(t, []string{"b"}, ids(s.Pending()))
}

func TestStoreRemoveResolved(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 2))))
	_, err := s.Resolve("a", change.StatusRejected)
	require.NoError(t, err)

	assert.True(t, s.Remove("a"))
	_, err = s.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 2))), "removed id may be reused")
}

func TestStoreFindInRange(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(set(
		mk("a", change.KindDeletion, 0, 3),
		mk("b", change.KindAddition, 5, 8),
		mk("c", change.KindModification, 8, 12),
		mk("d", change.KindDeletion, 20, 25),
	)))

	tests := []struct {
		name     string
		from, to buffer.ByteOffset
		want     []string
	}{
		{"everything", 0, 100, []string{"a", "b", "c", "d"}},
		{"gap", 3, 5, nil},
		{"touching end is exclusive", 12, 20, nil},
		{"spans two", 7, 9, []string{"b", "c"}},
		{"point inside", 10, 10, []string{"c"}},
		{"point at start", 8, 8, []string{"c"}},
		{"point at end", 3, 3, nil},
		{"tail", 21, 30, []string{"d"}},
		{"past end", 30, 40, nil},
		{"invalid", 9, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.FindInRange(tt.from, tt.to)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestStoreFindInRangeEmptyChange(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(set(mk("p", change.KindAddition, 4, 4))))

	assert.Equal(t, []string{"p"}, ids(s.FindInRange(0, 10)))
	assert.Equal(t, []string{"p"}, ids(s.FindInRange(4, 4)))
	assert.Empty(t, s.FindInRange(0, 4))
}

func TestStoreRemapShift(t *testing.T) {
	s := NewStore()
	orig := mk("m", change.KindModification, 10, 13)
	orig.OriginalText, orig.SuggestedText = "big", "significant"
	require.NoError(t, s.Add(set(mk("before", change.KindDeletion, 0, 4), orig)))

	res := s.Remap(5, 5, 3)

	assert.Equal(t, []string{"m"}, res.Shifted)
	assert.Empty(t, res.Dropped)

	c, err := s.Get("m")
	require.NoError(t, err)
	assert.Equal(t, buffer.NewRange(13, 16), c.Range)
	assert.Equal(t, "big", c.OriginalText)
	assert.Equal(t, "significant", c.SuggestedText)

	before, err := s.Get("before")
	require.NoError(t, err)
	assert.Equal(t, buffer.NewRange(0, 4), before.Range)
}

func TestStoreRemapCases(t *testing.T) {
	tests := []struct {
		name        string
		change      change.Change
		from, to, n buffer.ByteOffset
		want        buffer.Range
		dropped     bool
	}{
		{"insert before", mk("c", change.KindDeletion, 5, 8), 2, 2, 4, buffer.NewRange(9, 12), false},
		{"insert at start", mk("c", change.KindDeletion, 5, 8), 5, 5, 2, buffer.NewRange(7, 10), false},
		{"insert at end", mk("c", change.KindDeletion, 5, 8), 8, 8, 2, buffer.NewRange(5, 8), false},
		{"insert inside", mk("c", change.KindDeletion, 5, 8), 6, 6, 1, buffer.Range{}, true},
		{"delete before", mk("c", change.KindDeletion, 5, 8), 0, 3, 0, buffer.NewRange(2, 5), false},
		{"delete after", mk("c", change.KindDeletion, 5, 8), 8, 12, 0, buffer.NewRange(5, 8), false},
		{"delete overlapping start", mk("c", change.KindDeletion, 5, 8), 3, 6, 0, buffer.Range{}, true},
		{"replace covering", mk("c", change.KindDeletion, 5, 8), 4, 9, 1, buffer.Range{}, true},
		{"replace before shrinking", mk("c", change.KindDeletion, 5, 8), 1, 4, 1, buffer.NewRange(3, 6), false},
		{"empty change inside delete", mk("c", change.KindAddition, 5, 5), 4, 6, 0, buffer.Range{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			require.NoError(t, s.Add(set(tt.change)))

			res := s.Remap(tt.from, tt.to, tt.n)

			if tt.dropped {
				require.Len(t, res.Dropped, 1)
				assert.Equal(t, "c", res.Dropped[0].ID)
				_, err := s.Get("c")
				assert.ErrorIs(t, err, ErrNotFound)
				assert.Equal(t, 0, s.Len())
				return
			}
			c, err := s.Get("c")
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Range)
		})
	}
}

func TestStoreRemapIgnoresInvalidEdit(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(set(mk("c", change.KindDeletion, 5, 8))))

	res := s.Remap(6, 2, 0)

	assert.Empty(t, res.Shifted)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, 1, s.Len())
}

func TestStoreRemapMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	s := NewStore(WithMetrics(m))
	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 4), mk("b", change.KindDeletion, 4, 8))))

	s.Remap(1, 6, 0)

	assert.Equal(t, 2.0, counterValue(t, reg, "redline_remap_dropped_total"))
	assert.Equal(t, 0, s.Len())
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestStoreResolve(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 2), mk("b", change.KindDeletion, 4, 6))))

	c, err := s.Resolve("a", change.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, change.StatusAccepted, c.Status)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"b"}, ids(s.Pending()))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, change.StatusAccepted, got.Status)

	_, err = s.Resolve("a", change.StatusRejected)
	assert.ErrorIs(t, err, change.ErrAlreadyResolved)

	_, err = s.Resolve("missing", change.StatusRejected)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Resolve("b", change.StatusPending)
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len())

	assert.Equal(t, []string{"a"}, ids(s.Resolved()))
}

func TestStoreResolvedHistoryEvicts(t *testing.T) {
	s := NewStore(WithResolvedHistory(2))
	require.NoError(t, s.Add(set(
		mk("a", change.KindDeletion, 0, 1),
		mk("b", change.KindDeletion, 2, 3),
		mk("c", change.KindDeletion, 4, 5),
	)))

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Resolve(id, change.StatusRejected)
		require.NoError(t, err)
	}

	_, err := s.Get("a")
	assert.ErrorIs(t, err, ErrNotFound, "oldest entry evicted")
	assert.Equal(t, []string{"b", "c"}, ids(s.Resolved()))
}

func TestStoreResolvedHistoryDisabled(t *testing.T) {
	s := NewStore(WithResolvedHistory(0))
	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 1))))

	_, err := s.Resolve("a", change.StatusAccepted)
	require.NoError(t, err)

	_, err = s.Resolve("a", change.StatusAccepted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 1), mk("b", change.KindDeletion, 2, 3))))
	_, err := s.Resolve("a", change.StatusAccepted)
	require.NoError(t, err)

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Resolved())
	_, err = s.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreValidate(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 4), mk("b", change.KindDeletion, 6, 10))))

	assert.NoError(t, s.Validate(10))

	err := s.Validate(8)
	var cre *CorruptRangeError
	require.ErrorAs(t, err, &cre)
	assert.Equal(t, "b", cre.ID)
	assert.True(t, errors.Is(err, ErrCorruptRange))
}

func TestStoreEvents(t *testing.T) {
	s := NewStore()
	defer s.Close()

	var got []event.StoreEvent
	s.Subscribe(func(ev event.StoreEvent) {
		// Observers run outside the lock and may read the store.
		_ = s.Len()
		got = append(got, ev)
	})

	require.NoError(t, s.Add(set(mk("a", change.KindDeletion, 0, 2), mk("b", change.KindDeletion, 5, 7))))
	s.Remap(3, 3, 1)
	s.Remap(0, 1, 0)
	_, err := s.Resolve("b", change.StatusAccepted)
	require.NoError(t, err)
	s.Clear()

	types := make([]event.StoreEventType, len(got))
	for i, ev := range got {
		types[i] = ev.Type
	}
	assert.Equal(t, []event.StoreEventType{
		event.StoreAdded,
		event.StoreShifted,
		event.StoreDropped,
		event.StoreShifted,
		event.StoreResolved,
		event.StoreCleared,
	}, types)
	assert.Equal(t, []string{"a", "b"}, got[0].IDs)
	assert.Equal(t, []string{"b"}, got[1].IDs)
	assert.Equal(t, []string{"a"}, got[2].IDs)
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&DuplicateIDError{ID: "x"}).Error(), `"x"`)
	assert.Contains(t, (&OverlapError{ID: "a", OtherID: "b"}).Error(), "overlaps")
	assert.Contains(t, (&CorruptRangeError{ID: "c", Reason: "text mismatch"}).Error(), "text mismatch")
}
