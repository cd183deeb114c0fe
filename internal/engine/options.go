package engine

import (
	"log/slog"
	"time"

	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/engine/diff"
	"github.com/dshills/redline/internal/engine/tracking"
	"github.com/dshills/redline/internal/metrics"
	"github.com/dshills/redline/internal/renderer/overlay"
)

// Default configuration values.
const (
	DefaultResolvedHistory = tracking.DefaultResolvedHistory
	DefaultMaxLabelPreview = overlay.DefaultMaxLabelPreview
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithContent sets the initial document.
func WithContent(content string) Option {
	return func(e *Engine) {
		e.initContent = content
	}
}

// WithLogger sets the logger shared by all components.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics records engine metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = c
	}
}

// WithIDGenerator sets the change id generator.
func WithIDGenerator(g change.IDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithDiffer sets the differ used for suggestions.
func WithDiffer(d *diff.Differ) Option {
	return func(e *Engine) {
		if d != nil {
			e.differ = d
		}
	}
}

// WithResolvedHistory sets how many resolved changes stay queryable.
func WithResolvedHistory(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.resolvedHistory = n
		}
	}
}

// WithClock sets the time source used to stamp changes.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// WithAsyncEvents delivers status events from a goroutine with the given
// buffer size instead of on the caller's goroutine.
func WithAsyncEvents(bufferSize int) Option {
	return func(e *Engine) {
		if bufferSize > 0 {
			e.asyncEvents = bufferSize
		}
	}
}

// WithNormalization toggles NFC normalization of suggested text.
func WithNormalization(enabled bool) Option {
	return func(e *Engine) {
		e.normalize = enabled
	}
}

// WithMaxLabelPreview sets how many grapheme clusters decoration labels
// preview.
func WithMaxLabelPreview(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxPreview = n
		}
	}
}
