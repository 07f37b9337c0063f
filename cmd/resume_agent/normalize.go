package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/latex-resume-agent/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize the structure of LaTeX resume markup",
	Long: `Removes empty sections, converts markdown emphasis and links to LaTeX, and reports
unbalanced braces. Changes and warnings are printed to stderr.`,
	RunE: runNormalize,
}

var (
	normalizeInput  string
	normalizeOutput string
	normalizeReport bool
)

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeInput, "in", "i", "", "Path to the .tex file (required)")
	normalizeCmd.Flags().StringVarP(&normalizeOutput, "out", "o", "", "Path to write the normalized .tex (default stdout)")
	normalizeCmd.Flags().BoolVar(&normalizeReport, "report", false, "Print the structural report as JSON instead of the markup")

	if err := normalizeCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(_ *cobra.Command, _ []string) error {
	raw, err := readText(normalizeInput)
	if err != nil {
		return err
	}

	markup, report := normalize.NormalizeWithReport(raw)
	for _, change := range report.Changes() {
		_, _ = fmt.Fprintf(os.Stderr, "Changed: %s\n", change)
	}
	warn(os.Stderr, report.Warnings())

	if normalizeReport {
		return writeJSON(normalizeOutput, report)
	}
	return writeOutput(normalizeOutput, []byte(markup))
}
