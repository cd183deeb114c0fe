package diff

import (
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/redline/internal/metrics"
)

// Default differ settings.
const (
	// DefaultTimeout bounds the Myers search; past it the script is still
	// correct but less minimal.
	DefaultTimeout = time.Second

	// DefaultMaxBridge is the longest equality absorbed between two edits.
	DefaultMaxBridge = 3

	// DefaultLineModeThreshold is the combined input size above which a
	// line-level pre-pass speeds up the diff.
	DefaultLineModeThreshold = 64 * 1024
)

// Option configures a Differ.
type Option func(*Differ)

// WithTimeout sets the time budget of a single diff. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(df *Differ) {
		if d >= 0 {
			df.timeout = d
		}
	}
}

// WithSemanticCleanup toggles the word-alignment cleanup pass.
func WithSemanticCleanup(enabled bool) Option {
	return func(df *Differ) {
		df.semantic = enabled
	}
}

// WithMaxBridge sets the longest equality absorbed between two edits.
// Zero disables bridging.
func WithMaxBridge(n int) Option {
	return func(df *Differ) {
		if n >= 0 {
			df.maxBridge = n
		}
	}
}

// WithLineModeThreshold sets the input size above which line mode is used.
func WithLineModeThreshold(n int) Option {
	return func(df *Differ) {
		if n > 0 {
			df.lineModeThreshold = n
		}
	}
}

// WithMetrics records diff durations on the given collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(df *Differ) {
		df.metrics = m
	}
}

// Differ computes cleaned-up character diffs.
// A Differ holds no mutable state and is safe for concurrent use.
type Differ struct {
	timeout           time.Duration
	semantic          bool
	maxBridge         int
	lineModeThreshold int
	metrics           *metrics.Collector
}

// New creates a Differ with default settings.
func New(opts ...Option) *Differ {
	d := &Differ{
		timeout:           DefaultTimeout,
		semantic:          true,
		maxBridge:         DefaultMaxBridge,
		lineModeThreshold: DefaultLineModeThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Diff returns the edit script turning original into suggested.
// Ops are in document order and never carry empty text.
func (d *Differ) Diff(original, suggested string) []Diff {
	start := time.Now()
	defer func() {
		d.metrics.ObserveDiff(time.Since(start))
	}()

	if original == suggested {
		if original == "" {
			return nil
		}
		return []Diff{{Op: OpEqual, Text: original}}
	}

	// diffmatchpatch works on runes; invalid UTF-8 would not survive the
	// round trip, so such inputs get a byte-exact prefix/suffix diff.
	if !utf8.ValidString(original) || !utf8.ValidString(suggested) {
		return affixDiff(original, suggested)
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = d.timeout
	checkLines := len(original)+len(suggested) > d.lineModeThreshold

	raw := dmp.DiffMain(original, suggested, checkLines)
	if d.semantic {
		raw = dmp.DiffCleanupSemantic(raw)
	}

	ops := make([]Diff, 0, len(raw))
	for _, r := range raw {
		ops = append(ops, Diff{Op: fromDMP(r.Type), Text: r.Text})
	}

	ops = coalesce(ops, d.maxBridge)
	if Source(ops) != original || Target(ops) != suggested {
		return affixDiff(original, suggested)
	}
	return ops
}

func fromDMP(op diffmatchpatch.Operation) Op {
	switch op {
	case diffmatchpatch.DiffInsert:
		return OpInsert
	case diffmatchpatch.DiffDelete:
		return OpDelete
	default:
		return OpEqual
	}
}

// segment is either an equality or an edit run of one delete and one insert.
type segment struct {
	equal bool
	eq    string
	del   string
	ins   string
}

// coalesce folds consecutive non-equal ops into a delete followed by an
// insert, absorbs short in-word equalities sitting between two edits, and
// drops empty ops.
func coalesce(in []Diff, maxBridge int) []Diff {
	var segs []segment
	for _, d := range in {
		if d.Text == "" {
			continue
		}
		n := len(segs)
		if d.Op == OpEqual {
			if n > 0 && segs[n-1].equal {
				segs[n-1].eq += d.Text
				continue
			}
			segs = append(segs, segment{equal: true, eq: d.Text})
			continue
		}
		if n == 0 || segs[n-1].equal {
			segs = append(segs, segment{})
		}
		s := &segs[len(segs)-1]
		if d.Op == OpDelete {
			s.del += d.Text
		} else {
			s.ins += d.Text
		}
	}

	if maxBridge > 0 {
		out := make([]segment, 0, len(segs))
		for _, s := range segs {
			n := len(out)
			if !s.equal && n >= 2 && out[n-1].equal && !out[n-2].equal && isBridge(out[n-1].eq, maxBridge) {
				bridge := out[n-1].eq
				prev := &out[n-2]
				prev.del += bridge + s.del
				prev.ins += bridge + s.ins
				out = out[:n-1]
				continue
			}
			out = append(out, s)
		}
		segs = out
	}

	ops := make([]Diff, 0, len(segs)*2)
	for _, s := range segs {
		if s.equal {
			ops = append(ops, Diff{Op: OpEqual, Text: s.eq})
			continue
		}
		if s.del != "" {
			ops = append(ops, Diff{Op: OpDelete, Text: s.del})
		}
		if s.ins != "" {
			ops = append(ops, Diff{Op: OpInsert, Text: s.ins})
		}
	}
	return ops
}

// isBridge reports whether an equality is short and inside a word.
func isBridge(s string, maxBridge int) bool {
	if len(s) > maxBridge {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			return false
		}
	}
	return true
}

// affixDiff diffs by stripping the common byte prefix and suffix and
// replacing the middle.
func affixDiff(original, suggested string) []Diff {
	prefix := 0
	for prefix < len(original) && prefix < len(suggested) && original[prefix] == suggested[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(original)-prefix && suffix < len(suggested)-prefix &&
		original[len(original)-1-suffix] == suggested[len(suggested)-1-suffix] {
		suffix++
	}

	ops := []Diff{
		{Op: OpEqual, Text: original[:prefix]},
		{Op: OpDelete, Text: original[prefix : len(original)-suffix]},
		{Op: OpInsert, Text: suggested[prefix : len(suggested)-suffix]},
		{Op: OpEqual, Text: original[len(original)-suffix:]},
	}
	return coalesce(ops, 0)
}
