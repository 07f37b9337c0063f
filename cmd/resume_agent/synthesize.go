package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/latex-resume-agent/internal/synthesis"
	"github.com/jonathan/latex-resume-agent/internal/target"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Generate LaTeX resume markup from a template and a facts bundle",
	Long: `Asks the generative service for resume markup that follows the template and uses only the
facts in the bundle, then normalizes its structure. Warnings are printed to stderr.`,
	RunE: runSynthesize,
}

var (
	synthTemplate  string
	synthFacts     string
	synthTarget    string
	synthTargetURL string
	synthOutput    string
)

func init() {
	synthesizeCmd.Flags().StringVar(&synthTemplate, "template", "", "Path to the LaTeX template (required)")
	synthesizeCmd.Flags().StringVarP(&synthFacts, "facts", "f", "", "Path to the facts bundle JSON (required)")
	synthesizeCmd.Flags().StringVarP(&synthTarget, "target", "t", "", "Path to the target: TargetDescription JSON or posting text")
	synthesizeCmd.Flags().StringVar(&synthTargetURL, "target-url", "", "URL to fetch the posting from (alternative to --target)")
	synthesizeCmd.Flags().StringVarP(&synthOutput, "out", "o", "", "Path to write the .tex output (default stdout)")

	for _, name := range []string{"template", "facts"} {
		if err := synthesizeCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(synthesizeCmd)
}

func runSynthesize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	template, err := readText(synthTemplate)
	if err != nil {
		return err
	}
	facts, err := readJSON[types.FactsBundle](synthFacts)
	if err != nil {
		return err
	}
	tgt, err := loadTarget(ctx, synthTarget, synthTargetURL)
	if err != nil {
		return err
	}

	client, err := requireGenerativeClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	target.Ensure(ctx, client, tgt)
	result, err := newSynthesizer(cfg, client).Synthesize(ctx, template, facts, tgt.Context())
	if err != nil {
		var inputErr *synthesis.InputError
		if errors.As(err, &inputErr) {
			return fmt.Errorf("invalid input: %w", err)
		}
		return err
	}

	printer(cfg).PrintGeneration(result)
	warn(os.Stderr, result.Warnings)
	return writeOutput(synthOutput, []byte(result.Markup))
}
