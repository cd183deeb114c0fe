package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/redline/internal/config"
	"github.com/dshills/redline/internal/engine"
	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/engine/diff"
	"github.com/dshills/redline/internal/logging"
	"github.com/dshills/redline/internal/metrics"
)

// cli holds state shared by all commands.
type cli struct {
	cfgPath   string
	logLevel  string
	logFormat string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "redline",
		Short: "Review AI suggestions as tracked changes",
		Long: `redline turns suggested rewrites into tracked changes that can be
accepted or rejected one by one or all at once.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.cfgPath, "config", "c", "", "path to a TOML or YAML config file")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&c.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(newDiffCmd(c), newReviewCmd(c), newWatchCmd(c))
	return root
}

// setup loads configuration and builds the logger. Flags override the
// environment, which overrides the file.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.log = logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	return nil
}

func (c *cli) differ(m *metrics.Collector) *diff.Differ {
	opts := append(c.cfg.Diff.DifferOptions(), diff.WithMetrics(m))
	return diff.New(opts...)
}

func (c *cli) ids() change.IDGenerator {
	if prefix := c.cfg.Suggestion.IDPrefix; prefix != "" {
		return change.NewSequenceGenerator(prefix)
	}
	return change.UUIDGenerator{}
}

// newEngine creates a review session over content.
func (c *cli) newEngine(content string, m *metrics.Collector) *engine.Engine {
	return engine.New(
		engine.WithContent(content),
		engine.WithLogger(c.log),
		engine.WithMetrics(m),
		engine.WithIDGenerator(c.ids()),
		engine.WithDiffer(c.differ(m)),
		engine.WithResolvedHistory(c.cfg.Review.ResolvedHistory),
		engine.WithMaxLabelPreview(c.cfg.Review.MaxLabelPreview),
		engine.WithAsyncEvents(c.cfg.Review.AsyncEvents),
		engine.WithNormalization(c.cfg.Suggestion.Normalize),
	)
}
