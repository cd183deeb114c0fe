package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "REDLINE_"

// envSetting maps one environment variable onto a setting.
type envSetting struct {
	name string
	path string
	set  func(c *Config, v string) error
}

var envSettings = []envSetting{
	{"LOG_LEVEL", "log.level", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"LOG_FORMAT", "log.format", func(c *Config, v string) error { c.Log.Format = v; return nil }},
	{"DIFF_TIMEOUT", "diff.timeout", func(c *Config, v string) error { return setDuration(&c.Diff.Timeout, v) }},
	{"DIFF_SEMANTIC_CLEANUP", "diff.semanticCleanup", func(c *Config, v string) error { return setBool(&c.Diff.SemanticCleanup, v) }},
	{"DIFF_MAX_BRIDGE", "diff.maxBridge", func(c *Config, v string) error { return setInt(&c.Diff.MaxBridge, v) }},
	{"REVIEW_RESOLVED_HISTORY", "review.resolvedHistory", func(c *Config, v string) error { return setInt(&c.Review.ResolvedHistory, v) }},
	{"REVIEW_ASYNC_EVENTS", "review.asyncEvents", func(c *Config, v string) error { return setInt(&c.Review.AsyncEvents, v) }},
	{"AUTHOR", "suggestion.author", func(c *Config, v string) error { c.Suggestion.Author = v; return nil }},
	{"SUGGESTION_NORMALIZE", "suggestion.normalize", func(c *Config, v string) error { return setBool(&c.Suggestion.Normalize, v) }},
	{"ID_PREFIX", "suggestion.idPrefix", func(c *Config, v string) error { c.Suggestion.IDPrefix = v; return nil }},
	{"WATCH_DEBOUNCE", "watch.debounce", func(c *Config, v string) error { return setDuration(&c.Watch.Debounce, v) }},
	{"METRICS_ADDR", "metrics.addr", func(c *Config, v string) error {
		c.Metrics.Addr = v
		c.Metrics.Enabled = v != ""
		return nil
	}},
}

// ApplyEnv overrides settings from REDLINE_* environment variables.
// Empty values are treated as set.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, s := range envSettings {
		v, ok := lookup(EnvPrefix + s.name)
		if !ok {
			continue
		}
		if err := s.set(c, v); err != nil {
			return &ValidationError{
				Path:    s.path,
				Message: fmt.Sprintf("from %s%s: %v", EnvPrefix, s.name, err),
				Value:   v,
			}
		}
	}
	return nil
}

func setDuration(d *Duration, v string) error {
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func setBool(b *bool, v string) error {
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func setInt(n *int, v string) error {
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
