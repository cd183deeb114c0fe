package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dshills/redline/internal/metrics"
	"github.com/dshills/redline/internal/watch"
)

type watchOptions struct {
	review      reviewOptions
	metricsAddr string
}

func newWatchCmd(c *cli) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch --suggestions FILE [--doc FILE]",
		Short: "Re-review whenever the document or suggestion file changes",
		Long: `watch prints the pending changes for a document and its suggestion file,
and prints them again each time either file is saved. A review still
running when a newer change arrives is abandoned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.review.seqIDs && c.cfg.Suggestion.IDPrefix == "" {
				c.cfg.Suggestion.IDPrefix = "c"
			}
			if opts.metricsAddr != "" {
				c.cfg.Metrics.Enabled = true
				c.cfg.Metrics.Addr = opts.metricsAddr
			}
			return c.watch(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.review.doc, "doc", "d", "", "document file (defaults to the document in the suggestion file)")
	flags.StringVarP(&opts.review.suggestions, "suggestions", "s", "", "JSON or YAML suggestion file")
	flags.StringVar(&opts.review.format, "format", formatText, "output format (text, json)")
	flags.BoolVar(&opts.review.seqIDs, "seq-ids", false, "number changes c1, c2, ... instead of using UUIDs")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	_ = cmd.MarkFlagRequired("suggestions")
	return cmd
}

type reviewResult struct {
	gen int
	rep *report
	err error
}

func (c *cli) watch(ctx context.Context, opts *watchOptions, out io.Writer) error {
	var collector *metrics.Collector
	if c.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		var err error
		if collector, err = metrics.New(reg); err != nil {
			return err
		}
		stop, err := c.serveMetrics(reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	paths := []string{opts.review.suggestions}
	if opts.review.doc != "" {
		paths = append(paths, opts.review.doc)
	}
	w, err := watch.New(paths,
		watch.WithDebounce(c.cfg.Watch.Debounce.Duration),
		watch.WithLogger(c.log),
		watch.WithBufferSize(len(paths)),
	)
	if err != nil {
		return err
	}
	defer w.Close()
	c.log.Info("watching files", "paths", w.Paths())

	results := make(chan reviewResult)
	gen := 0
	cancelRun := context.CancelFunc(func() {})
	defer func() { cancelRun() }()

	start := func() {
		cancelRun()
		gen++
		runCtx, cancel := context.WithCancel(ctx)
		cancelRun = cancel

		g := gen
		go func() {
			rep, err := c.review(runCtx, &opts.review, collector)
			select {
			case results <- reviewResult{gen: g, rep: rep, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	start()
	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			if n := w.PendingCount(); n > 0 {
				c.log.Debug("discarding pending file events", "count", n)
			}
			return nil

		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			c.log.Info("file changed, reviewing again", "path", ev.Path, "op", ev.Op.String())
			start()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.log.Warn("watch error", "error", err)

		case r := <-results:
			if r.gen != gen {
				c.log.Debug("discarding stale review", "gen", r.gen, "current", gen)
				continue
			}
			if r.err != nil {
				c.log.Error("review failed", "error", r.err)
				fmt.Fprintf(out, "review failed: %v\n", r.err)
				continue
			}
			if err := writeReport(out, opts.review.format, r.rep); err != nil {
				return err
			}
		}
	}
}

// serveMetrics exposes reg over HTTP and returns a function that stops the
// server.
func (c *cli) serveMetrics(reg *prometheus.Registry) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              c.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	go func() {
		c.log.Info("serving metrics", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error("metrics server stopped", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
