package main

import (
	"fmt"
	"io"
	"os"

	"ai-text-editor-be/pkg/textdiff"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	var contextLines int
	cmd := &cobra.Command{
		Use:   "diff <before> <after>",
		Short: "Show a line diff between two documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := readDocument(args[0])
			if err != nil {
				return err
			}
			after, err := readDocument(args[1])
			if err != nil {
				return err
			}
			renderHunks(cmd.OutOrStdout(), textdiff.Hunks(before.Text, after.Text, contextLines))
			return nil
		},
	}
	cmd.Flags().IntVar(&contextLines, "context", textdiff.DefaultContext, "Diff context lines")
	return cmd
}

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	headerColor  = color.New(color.FgCyan)
)

func renderHunks(w io.Writer, hunks []textdiff.Hunk) {
	if len(hunks) == 0 {
		fmt.Fprintln(w, "no changes")
		return
	}
	for _, h := range hunks {
		headerColor.Fprintf(w, "@@ -%d +%d @@\n", h.OldStart, h.NewStart)
		for _, line := range h.Lines {
			switch line.Type {
			case textdiff.LineAdded:
				addedColor.Fprintf(w, "+%s\n", line.Text)
			case textdiff.LineRemoved:
				removedColor.Fprintf(w, "-%s\n", line.Text)
			default:
				fmt.Fprintf(w, " %s\n", line.Text)
			}
		}
	}
	stats := textdiff.Count(hunks)
	fmt.Fprintf(w, "%d added, %d removed\n", stats.Added, stats.Removed)
}

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color.NoColor = true
	}
}
