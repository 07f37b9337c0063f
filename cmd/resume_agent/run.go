package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/latex-resume-agent/internal/compile"
	"github.com/jonathan/latex-resume-agent/internal/config"
	"github.com/jonathan/latex-resume-agent/internal/db"
	"github.com/jonathan/latex-resume-agent/internal/pipeline"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full resume pipeline end-to-end",
	Long: `Orchestrates the whole process: target analysis -> ranking -> selection -> grounded synthesis -> compilation.

Inputs come from a request JSON file (--request), from individual flags, or from a stored resume
record (--resume-id, requires DATABASE_URL). Flags override values in the request file.`,
	RunE: runPipelineCmd,
}

var (
	runRequest     string
	runResumeID    string
	runTemplate    string
	runFacts       string
	runTarget      string
	runTargetURL   string
	runItems       string
	runOutputID    string
	runSkipCompile bool
	runOutput      string
	runTexOutput   string
)

func init() {
	runCommand.Flags().StringVar(&runRequest, "request", "", "Path to a pipeline request JSON file")
	runCommand.Flags().StringVar(&runResumeID, "resume-id", "", "Generate and compile a stored resume record")
	runCommand.Flags().StringVar(&runTemplate, "template", "", "Path to the LaTeX template")
	runCommand.Flags().StringVarP(&runFacts, "facts", "f", "", "Path to the facts bundle JSON")
	runCommand.Flags().StringVarP(&runTarget, "target", "t", "", "Path to the target: TargetDescription JSON or posting text")
	runCommand.Flags().StringVar(&runTargetURL, "target-url", "", "URL to fetch the posting from (alternative to --target)")
	runCommand.Flags().StringVarP(&runItems, "items", "i", "", "Path to a JSON array of candidate items (default: the bundle's items)")
	runCommand.Flags().StringVar(&runOutputID, "output-id", "", "Artifact name without extension")
	runCommand.Flags().BoolVar(&runSkipCompile, "skip-compile", false, "Stop after synthesis")
	runCommand.Flags().StringVarP(&runOutput, "out", "o", "", "Path to write the result JSON (default stdout)")
	runCommand.Flags().StringVar(&runTexOutput, "tex", "", "Path to also write the generated .tex")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	client, err := requireGenerativeClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	sim, err := newSimilarity(ctx, cfg, client)
	if err != nil {
		return err
	}
	synth := newSynthesizer(cfg, client)
	opts := []pipeline.Option{pipeline.WithAnalyzer(client), pipeline.WithProgress(progressLogger(cfg))}
	opts = append(opts, tailoring(cfg, synth)...)
	if !runSkipCompile {
		compiler, err := newCompiler(ctx, cfg)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithCompiler(compiler))
	}

	if runResumeID != "" {
		return runStoredResume(ctx, cfg, opts, newRanker(cfg, sim), synth)
	}

	req, err := buildRunRequest(ctx)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(newRanker(cfg, sim), synth, opts...)
	result, err := runner.Execute(ctx, *req)
	if err != nil {
		return err
	}

	p := printer(cfg)
	p.PrintTarget(result.Target)
	p.PrintMatchScores(result.Scores, itemTitles(append(req.Items, req.Facts.Items...)))
	p.PrintGeneration(result.Generation)
	p.PrintCompilation(result.Compilation)
	warn(os.Stderr, result.Generation.Warnings)

	if runTexOutput != "" {
		if err := writeOutput(runTexOutput, []byte(result.Generation.Markup)); err != nil {
			return err
		}
	}
	return writeJSON(runOutput, result)
}

// buildRunRequest merges the request file with any flags that were set.
func buildRunRequest(ctx context.Context) (*pipeline.Request, error) {
	req := &pipeline.Request{}
	if runRequest != "" {
		loaded, err := readJSON[pipeline.Request](runRequest)
		if err != nil {
			return nil, err
		}
		req = loaded
	}

	if runTemplate != "" {
		template, err := readText(runTemplate)
		if err != nil {
			return nil, err
		}
		req.Template = template
	}
	if runFacts != "" {
		facts, err := readJSON[types.FactsBundle](runFacts)
		if err != nil {
			return nil, err
		}
		req.Facts = facts
	}
	if runTarget != "" || runTargetURL != "" {
		tgt, err := loadTarget(ctx, runTarget, runTargetURL)
		if err != nil {
			return nil, err
		}
		req.Target = tgt
	}
	if runItems != "" {
		items, err := readJSON[[]types.ContentItem](runItems)
		if err != nil {
			return nil, err
		}
		req.Items = *items
	}
	if runOutputID != "" {
		req.OutputID = runOutputID
	}
	if runSkipCompile {
		req.SkipCompile = true
	}

	switch {
	case req.Template == "":
		return nil, errors.New("a template is required (--template or the request file)")
	case req.Facts == nil:
		return nil, errors.New("a facts bundle is required (--facts or the request file)")
	case !compile.ValidOutputID(req.OutputID):
		return nil, fmt.Errorf("invalid output id %q: use letters, digits, '_' and '-'", req.OutputID)
	}
	return req, nil
}

// runStoredResume drives a stored record through generation and, unless skipped, compilation.
func runStoredResume(ctx context.Context, cfg *config.Config, opts []pipeline.Option, ranker pipeline.Ranker, synth pipeline.Synthesizer) error {
	id, err := uuid.Parse(runResumeID)
	if err != nil {
		return fmt.Errorf("invalid --resume-id: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required with --resume-id")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	runner := pipeline.NewRunner(ranker, synth, append(opts, pipeline.WithStore(database))...)
	p := printer(cfg)

	if runSkipCompile {
		gen, err := runner.Generate(ctx, id)
		if err != nil {
			return err
		}
		p.PrintGeneration(gen)
		warn(os.Stderr, gen.Warnings)
	} else if _, err := runner.Run(ctx, id); err != nil {
		return err
	}

	rec, err := database.GetResume(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("resume %s disappeared during the run", id)
	}
	p.PrintCompilation(rec.Compilation)
	if runTexOutput != "" && rec.Generation != nil {
		if err := writeOutput(runTexOutput, []byte(rec.Generation.Markup)); err != nil {
			return err
		}
	}
	return writeJSON(runOutput, rec)
}

// progressLogger reports pipeline steps to stderr in verbose mode.
func progressLogger(cfg *config.Config) pipeline.ProgressCallback {
	if !cfg.Verbose {
		return nil
	}
	return func(e pipeline.ProgressEvent) {
		_, _ = fmt.Fprintf(os.Stderr, "[%s] %s\n", e.Step, e.Message)
	}
}
