package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ai-text-editor-be/pkg/ingest"
	"ai-text-editor-be/pkg/proposal"
	"ai-text-editor-be/pkg/textdiff"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type applyOptions struct {
	feedback  bool
	dryRun    bool
	stripRule string
	minLength int
	context   int
	output    string
}

func newApplyCmd() *cobra.Command {
	opts := applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply <document> <proposal.json|yaml>",
		Short: "Apply a proposal to a document and print the diff",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, opts, args[0], args[1])
		},
	}
	cmd.Flags().BoolVar(&opts.feedback, "feedback", false, "Allow decorated fragments to match (feedback round)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate and show the diff without writing")
	cmd.Flags().StringVar(&opts.stripRule, "strip-rule", "ascii", "Drift strip rule: "+strings.Join(proposal.StripRuleNames(), ", "))
	cmd.Flags().IntVar(&opts.minLength, "min-length", 4, "Minimum stripped fragment length for drift recovery")
	cmd.Flags().IntVar(&opts.context, "context", textdiff.DefaultContext, "Diff context lines")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the result here instead of over the document")
	return cmd
}

func runApply(cmd *cobra.Command, opts applyOptions, docPath, proposalPath string) error {
	doc, err := readDocument(docPath)
	if err != nil {
		return err
	}
	for _, w := range doc.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}

	p, err := loadProposal(proposalPath)
	if err != nil {
		return err
	}

	keep, err := proposal.ParseStripRule(opts.stripRule)
	if err != nil {
		return err
	}
	applier := proposal.NewApplier(proposal.WithDriftResolver(proposal.NewDriftResolver(keep, opts.minLength)))

	result, err := applier.Apply(doc.Text, p, opts.feedback)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Summary)
	if n := result.Recovered(); n > 0 {
		fmt.Fprintf(out, "%d fragment(s) matched after ignoring decorative characters.\n", n)
	}
	renderHunks(out, textdiff.Hunks(doc.Text, result.Document, opts.context))

	if opts.dryRun {
		return nil
	}
	target := opts.output
	if target == "" {
		target = docPath
	}
	return os.WriteFile(target, []byte(result.Document), 0o644)
}

func readDocument(path string) (*ingest.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.NewIngester(0, nil).Read(filepath.Base(path), f)
}

// loadProposal reads a proposal in its JSON wire format. YAML files are
// accepted and converted first.
func loadProposal(path string) (proposal.Proposal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return proposal.Proposal{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return proposal.Proposal{}, fmt.Errorf("parse proposal yaml: %w", err)
		}
		if data, err = json.Marshal(raw); err != nil {
			return proposal.Proposal{}, err
		}
	}

	p, err := proposal.Decode(data)
	if err != nil {
		return proposal.Proposal{}, fmt.Errorf("parse proposal: %w", err)
	}
	return p, nil
}
