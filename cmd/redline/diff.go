package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/redline/internal/engine/change"
	"github.com/dshills/redline/internal/engine/diff"
)

type diffOptions struct {
	files  bool
	author string
	format string
}

func newDiffCmd(c *cli) *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff ORIGINAL SUGGESTED",
		Short: "Show the tracked changes a suggestion produces",
		Example: `  redline diff "The big advantage" "The significant advantage"
  redline diff --files draft.md rewrite.md`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			original, suggested := args[0], args[1]
			if opts.files {
				var err error
				if original, err = readText(args[0]); err != nil {
					return err
				}
				if suggested, err = readText(args[1]); err != nil {
					return err
				}
			}

			author := opts.author
			if author == "" {
				author = c.cfg.Suggestion.Author
			}

			ops := c.differ(nil).Diff(original, suggested)
			cs := change.NewBuilder(c.ids()).Build(ops, author, time.Now())

			return writeDiff(cmd.OutOrStdout(), opts.format, ops, cs)
		},
	}

	cmd.Flags().BoolVarP(&opts.files, "files", "f", false, "treat arguments as file paths")
	cmd.Flags().StringVar(&opts.author, "author", "", "author recorded on the changes")
	cmd.Flags().StringVar(&opts.format, "format", formatText, "output format (text, json)")
	return cmd
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// opView is the JSON form of a diff op.
type opView struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

func viewOps(ops []diff.Diff) []opView {
	out := make([]opView, len(ops))
	for i, d := range ops {
		out[i] = opView{Op: d.Op.String(), Text: d.Text}
	}
	return out
}
