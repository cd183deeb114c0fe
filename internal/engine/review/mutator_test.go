package review

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/redline/internal/engine/buffer"
	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/engine/tracking"
	"github.com/dshills/redline/internal/event"
	"github.com/dshills/redline/internal/metrics"
)

type fixture struct {
	buf   *buffer.Buffer
	store *tracking.Store
	mut   *Mutator
}

func newFixture(t *testing.T, text string, changes ...change.Change) *fixture {
	t.Helper()
	buf := buffer.NewBufferFromString(text)
	store := tracking.NewStore()
	require.NoError(t, store.Add(change.ChangeSet{Changes: changes}))
	return &fixture{buf: buf, store: store, mut: New(buf, store)}
}

func modification(id string, start, end buffer.ByteOffset, original, suggested string) change.Change {
	return change.Change{ID: id, Kind: change.KindModification, Range: buffer.NewRange(start, end), OriginalText: original, SuggestedText: suggested}
}

func deletion(id string, start, end buffer.ByteOffset, original string) change.Change {
	return change.Change{ID: id, Kind: change.KindDeletion, Range: buffer.NewRange(start, end), OriginalText: original}
}

func addition(id string, start, end buffer.ByteOffset, suggested string) change.Change {
	return change.Change{ID: id, Kind: change.KindAddition, Range: buffer.NewRange(start, end), SuggestedText: suggested}
}

// "The quick brown fox" -> "A quick red fox jumps", with " jumps" already
// materialized in the buffer.
func mixedFixture(t *testing.T) *fixture {
	return newFixture(t, "The quick brown fox jumps",
		modification("m1", 0, 3, "The", "A"),
		modification("m2", 10, 15, "brown", "red"),
		addition("a1", 19, 25, " jumps"),
	)
}

func TestAcceptAllBigAdvantage(t *testing.T) {
	f := newFixture(t, "The big advantage", modification("m", 4, 7, "big", "significant"))

	res, err := f.mut.AcceptAll()
	require.NoError(t, err)

	assert.Equal(t, "The significant advantage", f.buf.Text())
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, change.StatusAccepted, res.Succeeded[0].Status)
	assert.Equal(t, 0, f.store.Len())

	c, err := f.store.Get("m")
	require.NoError(t, err)
	assert.Equal(t, change.StatusAccepted, c.Status)
}

func TestRejectAllBigAdvantage(t *testing.T) {
	f := newFixture(t, "The big advantage", modification("m", 4, 7, "big", "significant"))

	res, err := f.mut.RejectAll()
	require.NoError(t, err)

	assert.Equal(t, "The big advantage", f.buf.Text())
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, change.StatusRejected, res.Succeeded[0].Status)
}

func TestAcceptAllMixed(t *testing.T) {
	f := mixedFixture(t)

	res, err := f.mut.AcceptAll()
	require.NoError(t, err)

	assert.Equal(t, "A quick red fox jumps", f.buf.Text())
	assert.Len(t, res.Succeeded, 3)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 3, res.Total())
}

func TestRejectAllMixed(t *testing.T) {
	f := mixedFixture(t)

	_, err := f.mut.RejectAll()
	require.NoError(t, err)

	assert.Equal(t, "The quick brown fox", f.buf.Text())
	for _, id := range []string{"m1", "m2", "a1"} {
		c, err := f.store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, change.StatusRejected, c.Status, id)
	}
}

func TestBatchRunsInDescendingOrder(t *testing.T) {
	f := mixedFixture(t)

	var order []string
	f.mut.Subscribe(func(ev event.StatusEvent) { order = append(order, ev.ChangeID) })

	_, err := f.mut.AcceptAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "m2", "m1"}, order)
}

func TestSingleAcceptShiftsLaterChanges(t *testing.T) {
	f := newFixture(t, "The big advantage is clear",
		modification("m", 4, 7, "big", "significant"),
		deletion("d", 17, 20, " is"),
	)

	out, err := f.mut.Accept("m")
	require.NoError(t, err)

	assert.Equal(t, "The significant advantage is clear", f.buf.Text())
	require.NotNil(t, out.Edit)
	assert.Equal(t, int64(8), out.Edit.Delta)

	d, err := f.store.Get("d")
	require.NoError(t, err)
	assert.Equal(t, buffer.NewRange(25, 28), d.Range)
	assert.Equal(t, " is", f.buf.TextRange(d.Range.Start, d.Range.End))
	assert.Equal(t, change.StatusPending, d.Status)

	_, err = f.mut.Accept("d")
	require.NoError(t, err)
	assert.Equal(t, "The significant advantage clear", f.buf.Text())
}

func TestSingleDecisions(t *testing.T) {
	tests := []struct {
		name   string
		c      change.Change
		text   string
		accept bool
		want   string
		edited bool
	}{
		{"accept addition", addition("x", 5, 9, " big"), "Hello big world", true, "Hello big world", false},
		{"reject addition", addition("x", 5, 9, " big"), "Hello big world", false, "Hello world", true},
		{"accept deletion", deletion("x", 5, 11, " cruel"), "Hello cruel world", true, "Hello world", true},
		{"reject deletion", deletion("x", 5, 11, " cruel"), "Hello cruel world", false, "Hello cruel world", false},
		{"accept modification", modification("x", 6, 11, "world", "there"), "Hello world", true, "Hello there", true},
		{"reject modification", modification("x", 6, 11, "world", "there"), "Hello world", false, "Hello world", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.text, tt.c)

			var out Outcome
			var err error
			if tt.accept {
				out, err = f.mut.Accept("x")
			} else {
				out, err = f.mut.Reject("x")
			}
			require.NoError(t, err)

			assert.Equal(t, tt.want, f.buf.Text())
			assert.Equal(t, tt.edited, out.Edit != nil)
			assert.False(t, out.Change.IsPending())
		})
	}
}

func TestNoDoubleResolution(t *testing.T) {
	f := newFixture(t, "Hello cruel world", deletion("d", 5, 11, " cruel"))

	_, err := f.mut.Accept("d")
	require.NoError(t, err)
	require.Equal(t, "Hello world", f.buf.Text())

	out, err := f.mut.Accept("d")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Equal(t, change.StatusAccepted, out.Change.Status)
	assert.Equal(t, "Hello world", f.buf.Text())

	_, err = f.mut.Reject("d")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestUnknownID(t *testing.T) {
	f := newFixture(t, "text")

	_, err := f.mut.Accept("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCorruptRange(t *testing.T) {
	tests := []struct {
		name string
		c    change.Change
	}{
		{"past end of buffer", deletion("c", 10, 40, "way too far")},
		{"text mismatch", deletion("c", 0, 4, "nope")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "short text here", tt.c)

			_, err := f.mut.Accept("c")

			var cre *CorruptRangeError
			require.ErrorAs(t, err, &cre)
			assert.ErrorIs(t, err, ErrCorruptRange)
			assert.Equal(t, "c", cre.ID)
			assert.Equal(t, "short text here", f.buf.Text())

			c, err := f.store.Get("c")
			require.NoError(t, err)
			assert.True(t, c.IsPending(), "corrupt change stays pending")
		})
	}
}

func TestBatchSkipsCorruptChange(t *testing.T) {
	f := newFixture(t, "The big advantage",
		modification("m", 4, 7, "big", "significant"),
		deletion("bad", 40, 50, "0123456789"),
	)

	res, err := f.mut.AcceptAll()
	require.NoError(t, err)

	assert.Equal(t, "The significant advantage", f.buf.Text())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "bad", res.Failures[0].Change.ID)
	assert.ErrorIs(t, res.Failures[0].Err, ErrCorruptRange)
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, "m", res.Succeeded[0].ID)
}

func TestBatchFailsWhenEveryChangeFails(t *testing.T) {
	f := newFixture(t, "tiny",
		deletion("a", 10, 12, "xx"),
		deletion("b", 20, 22, "yy"),
	)

	res, err := f.mut.RejectAll()

	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.ErrorIs(t, err, ErrCorruptRange)
	assert.Len(t, res.Failures, 2)
	assert.Equal(t, "tiny", f.buf.Text())
}

func TestBatchOnEmptyStore(t *testing.T) {
	f := newFixture(t, "nothing to do")

	res, err := f.mut.AcceptAll()

	assert.NoError(t, err)
	assert.Equal(t, 0, res.Total())
}

func TestStatusEvents(t *testing.T) {
	f := mixedFixture(t)

	var got []event.StatusEvent
	f.mut.Subscribe(func(ev event.StatusEvent) { got = append(got, ev) })

	_, err := f.mut.Reject("m2")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, event.StatusEvent{ChangeID: "m2", Status: "rejected", Pending: 2}, got[0])
}

func TestSharedNotifier(t *testing.T) {
	n := event.NewNotifier[event.StatusEvent]()
	count := 0
	n.Subscribe(func(event.StatusEvent) { count++ })

	buf := buffer.NewBufferFromString("The big advantage")
	store := tracking.NewStore()
	require.NoError(t, store.Add(change.ChangeSet{Changes: []change.Change{modification("m", 4, 7, "big", "significant")}}))
	m := New(buf, store, WithNotifier(n))

	_, err := m.Accept("m")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestResolutionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	col, err := metrics.New(reg)
	require.NoError(t, err)

	buf := buffer.NewBufferFromString("The big advantage")
	store := tracking.NewStore()
	require.NoError(t, store.Add(change.ChangeSet{Changes: []change.Change{modification("m", 4, 7, "big", "significant")}}))
	m := New(buf, store, WithMetrics(col))

	_, err = m.Accept("m")
	require.NoError(t, err)

	expected := `
# HELP redline_changes_resolved_total Tracked changes accepted or rejected, by kind and status.
# TYPE redline_changes_resolved_total counter
redline_changes_resolved_total{kind="modification",status="accepted"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "redline_changes_resolved_total"))
}

func TestEditForUnknownKindPanics(t *testing.T) {
	assert.Panics(t, func() {
		editFor(change.Change{Kind: change.Kind(99)}, change.StatusAccepted)
	})
}
