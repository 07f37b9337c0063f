package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/latex-resume-agent/internal/compile"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile LaTeX markup to PDF",
	Long: `Checks the markup for unsafe constructs, then tries the sandboxed, local and remote
compilers in order. The outcome is printed as JSON; the command fails unless compilation succeeded.`,
	RunE: runCompile,
}

var (
	compileInput    string
	compileOutputID string
	compileOutput   string
)

func init() {
	compileCmd.Flags().StringVarP(&compileInput, "in", "i", "", "Path to the .tex file (required)")
	compileCmd.Flags().StringVar(&compileOutputID, "output-id", "", "Artifact name without extension (default: derived from --in)")
	compileCmd.Flags().StringVarP(&compileOutput, "out", "o", "", "Path to write the outcome JSON (default stdout)")

	if err := compileCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	outputID := compileOutputID
	if outputID == "" {
		outputID = strings.TrimSuffix(filepath.Base(compileInput), filepath.Ext(compileInput))
		if !compile.ValidOutputID(outputID) {
			outputID = ""
		}
	}
	if !compile.ValidOutputID(outputID) {
		return fmt.Errorf("invalid --output-id %q: use letters, digits, '_' and '-'", outputID)
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	markup, err := readText(compileInput)
	if err != nil {
		return err
	}
	compiler, err := newCompiler(ctx, cfg)
	if err != nil {
		return err
	}

	outcome, err := compiler.Compile(ctx, markup, outputID)
	if err != nil {
		return err
	}
	printer(cfg).PrintCompilation(outcome)

	if err := writeJSON(compileOutput, outcome); err != nil {
		return err
	}
	if !outcome.Success {
		return fmt.Errorf("compilation did not succeed: %s", outcome.Kind)
	}
	_, _ = fmt.Fprintf(os.Stderr, "PDF written to %s\n", outcome.Artifact)
	return nil
}
