package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/latex-resume-agent/internal/target"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank content items against a job posting",
	Long: `Scores every content item against the target with semantic similarity, skill overlap,
keyword overlap and recency, then prints the top matches as JSON.

An unparsed target is analyzed first when Gemini credentials are available.`,
	RunE: runRank,
}

var (
	rankTarget    string
	rankTargetURL string
	rankItems     string
	rankTopN      int
	rankOutput    string
)

func init() {
	rankCmd.Flags().StringVarP(&rankTarget, "target", "t", "", "Path to the target: TargetDescription JSON or posting text")
	rankCmd.Flags().StringVar(&rankTargetURL, "target-url", "", "URL to fetch the posting from (alternative to --target)")
	rankCmd.Flags().StringVarP(&rankItems, "items", "i", "", "Path to a JSON array of content items (required)")
	rankCmd.Flags().IntVarP(&rankTopN, "top-n", "n", 10, "Maximum number of scores to return")
	rankCmd.Flags().StringVarP(&rankOutput, "out", "o", "", "Path to write scores JSON (default stdout)")

	if err := rankCmd.MarkFlagRequired("items"); err != nil {
		panic(fmt.Sprintf("failed to mark items flag as required: %v", err))
	}

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if rankTopN <= 0 {
		return errors.New("--top-n must be positive")
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	tgt, err := loadTarget(ctx, rankTarget, rankTargetURL)
	if err != nil {
		return err
	}
	if tgt == nil {
		return errors.New("either --target or --target-url must be provided")
	}
	items, err := readJSON[[]types.ContentItem](rankItems)
	if err != nil {
		return err
	}

	client, err := newGenerativeClient(cfg)
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}
	sim, err := newSimilarity(ctx, cfg, client)
	if err != nil {
		return err
	}

	target.Ensure(ctx, analyzer(client), tgt)
	p := printer(cfg)
	p.PrintTarget(tgt)

	scores, err := newRanker(cfg, sim).Rank(ctx, tgt, *items, rankTopN)
	if err != nil {
		return err
	}
	p.PrintMatchScores(scores, itemTitles(*items))

	if err := writeJSON(rankOutput, scores); err != nil {
		return err
	}
	if rankOutput != "" {
		_, _ = fmt.Fprintf(os.Stderr, "Ranked %d of %d items -> %s\n", len(scores), len(*items), rankOutput)
	}
	return nil
}
