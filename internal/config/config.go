package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/redline/internal/engine"
	"github.com/dshills/redline/internal/engine/diff"
)

// Config holds all redline settings.
type Config struct {
	Log        LogConfig        `toml:"log" yaml:"log"`
	Diff       DiffConfig       `toml:"diff" yaml:"diff"`
	Review     ReviewConfig     `toml:"review" yaml:"review"`
	Suggestion SuggestionConfig `toml:"suggestion" yaml:"suggestion"`
	Watch      WatchConfig      `toml:"watch" yaml:"watch"`
	Metrics    MetricsConfig    `toml:"metrics" yaml:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `toml:"level" yaml:"level"`

	// Format is the handler format, "text" or "json".
	Format string `toml:"format" yaml:"format"`
}

// DiffConfig configures the suggestion differ.
type DiffConfig struct {
	// Timeout bounds a single diff. Zero means no limit.
	Timeout Duration `toml:"timeout" yaml:"timeout"`

	// SemanticCleanup aligns edits to word boundaries.
	SemanticCleanup bool `toml:"semanticCleanup" yaml:"semanticCleanup"`

	// MaxBridge is the longest equality absorbed between two edits.
	MaxBridge int `toml:"maxBridge" yaml:"maxBridge"`

	// LineModeThreshold is the input size above which a line pre-pass runs.
	LineModeThreshold int `toml:"lineModeThreshold" yaml:"lineModeThreshold"`
}

// ReviewConfig configures change tracking and review.
type ReviewConfig struct {
	// ResolvedHistory is how many resolved changes stay queryable.
	ResolvedHistory int `toml:"resolvedHistory" yaml:"resolvedHistory"`

	// MaxLabelPreview is how many characters decoration labels preview.
	MaxLabelPreview int `toml:"maxLabelPreview" yaml:"maxLabelPreview"`

	// AsyncEvents, when positive, delivers status events from a goroutine
	// with a buffer of this size.
	AsyncEvents int `toml:"asyncEvents" yaml:"asyncEvents"`
}

// SuggestionConfig configures suggestion ingestion.
type SuggestionConfig struct {
	// Author is used when a suggestion file names none.
	Author string `toml:"author" yaml:"author"`

	// Normalize converts suggested text to NFC before diffing.
	Normalize bool `toml:"normalize" yaml:"normalize"`

	// IDPrefix switches change ids from UUIDs to a prefixed sequence.
	IDPrefix string `toml:"idPrefix" yaml:"idPrefix"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	// Debounce coalesces bursts of file events.
	Debounce Duration `toml:"debounce" yaml:"debounce"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Addr    string `toml:"addr" yaml:"addr"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Diff: DiffConfig{
			Timeout:           Duration{diff.DefaultTimeout},
			SemanticCleanup:   true,
			MaxBridge:         diff.DefaultMaxBridge,
			LineModeThreshold: diff.DefaultLineModeThreshold,
		},
		Review: ReviewConfig{
			ResolvedHistory: engine.DefaultResolvedHistory,
			MaxLabelPreview: engine.DefaultMaxLabelPreview,
		},
		Suggestion: SuggestionConfig{
			Normalize: true,
		},
		Watch: WatchConfig{
			Debounce: Duration{200 * time.Millisecond},
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
	}
}

// DifferOptions returns the differ options these settings describe.
func (c DiffConfig) DifferOptions() []diff.Option {
	return []diff.Option{
		diff.WithTimeout(c.Timeout.Duration),
		diff.WithSemanticCleanup(c.SemanticCleanup),
		diff.WithMaxBridge(c.MaxBridge),
		diff.WithLineModeThreshold(c.LineModeThreshold),
	}
}

// Validate reports every unusable setting, joined.
func (c *Config) Validate() error {
	var errs []error
	fail := func(path, msg string, v any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		fail("log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		fail("log.format", `must be "text" or "json"`, c.Log.Format)
	}

	if c.Diff.Timeout.Duration < 0 {
		fail("diff.timeout", "must not be negative", c.Diff.Timeout)
	}
	if c.Diff.MaxBridge < 0 {
		fail("diff.maxBridge", "must not be negative", c.Diff.MaxBridge)
	}
	if c.Diff.LineModeThreshold <= 0 {
		fail("diff.lineModeThreshold", "must be positive", c.Diff.LineModeThreshold)
	}

	if c.Review.ResolvedHistory < 0 {
		fail("review.resolvedHistory", "must not be negative", c.Review.ResolvedHistory)
	}
	if c.Review.MaxLabelPreview < 0 {
		fail("review.maxLabelPreview", "must not be negative", c.Review.MaxLabelPreview)
	}
	if c.Review.AsyncEvents < 0 {
		fail("review.asyncEvents", "must not be negative", c.Review.AsyncEvents)
	}

	if c.Watch.Debounce.Duration < 0 {
		fail("watch.debounce", "must not be negative", c.Watch.Debounce)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		fail("metrics.addr", "required when metrics are enabled", c.Metrics.Addr)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}
