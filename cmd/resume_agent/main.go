// Package main provides the resume_agent CLI: stage commands, the full pipeline, and the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "resume_agent",
	Short: "Grounded LaTeX resume generation",
	Long: `resume_agent ranks content items against a job posting, synthesizes a one-page LaTeX resume
grounded in a facts bundle, normalizes its structure and compiles it to PDF.

Settings come from the environment (a .env file is loaded if present) and an optional JSON file
given with --config. Environment values win over the file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print stage summaries to stderr")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
