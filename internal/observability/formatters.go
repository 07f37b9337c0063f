// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/latex-resume-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content. A nil Printer prints nothing.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	if p == nil {
		return
	}
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to at most n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintTarget outputs the structured form of a target description.
func (p *Printer) PrintTarget(target *types.TargetDescription) {
	if target == nil || target.Parsed == nil {
		return
	}
	parsed := target.Parsed

	var sb strings.Builder
	if parsed.Title != "" {
		sb.WriteString(fmt.Sprintf("Role:     %s\n", parsed.Title))
	}
	if parsed.Company != "" {
		sb.WriteString(fmt.Sprintf("Company:  %s\n", parsed.Company))
	}
	writeList(&sb, "Required skills", parsed.RequiredSkills)
	writeList(&sb, "Preferred skills", parsed.PreferredSkills)
	writeList(&sb, "Keywords", parsed.Keywords)

	p.printBox("TARGET ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

func writeList(sb *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		sb.WriteString(fmt.Sprintf("%s: none\n", label))
		return
	}
	sb.WriteString(fmt.Sprintf("%s (%d):\n", label, len(values)))
	count := min(len(values), maxItemsToShow)
	for _, v := range values[:count] {
		sb.WriteString(fmt.Sprintf("  • %s\n", v))
	}
	if len(values) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(values)-maxItemsToShow))
	}
}

// PrintMatchScores outputs the top ranked items with their sub-scores. titles maps item IDs to
// display names; missing entries fall back to the ID.
func (p *Printer) PrintMatchScores(scores []types.MatchScore, titles map[string]string) {
	if len(scores) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Items ranked: %d\n\n", len(scores)))

	count := min(len(scores), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := scores[i]
		name := titles[s.ItemID]
		if name == "" {
			name = s.ItemID
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, name))
		sb.WriteString(fmt.Sprintf("    Total: %.3f\n", s.TotalScore))
		sb.WriteString(fmt.Sprintf("    sem %.2f  tags %.2f  kw %.2f  rec %.2f\n",
			s.SemanticScore, s.TagOverlapScore, s.KeywordScore, s.RecencyScore))
		if s.Explanation != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", s.Explanation))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(scores) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more items", len(scores)-maxItemsToShow))
	}

	p.printBox("RANKED CONTENT ITEMS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintGeneration outputs a summary of a synthesized document.
func (p *Printer) PrintGeneration(result *types.GenerationResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Markup:  %d lines\n", strings.Count(result.Markup, "\n")+1))
	sb.WriteString(fmt.Sprintf("Tokens:  ~%d\n", result.TokensUsed))

	if len(result.Changes) > 0 {
		sb.WriteString("\nNormalizer changes:\n")
		for _, c := range result.Changes {
			sb.WriteString(fmt.Sprintf("  • %s\n", c))
		}
	}
	if len(result.Warnings) == 0 {
		sb.WriteString("\n✅ No warnings")
	} else {
		sb.WriteString(fmt.Sprintf("\n⚠️  %d warning(s):\n", len(result.Warnings)))
		for _, w := range result.Warnings {
			sb.WriteString(fmt.Sprintf("  • %s\n", w))
		}
	}

	p.printBox("GENERATED RESUME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCompilation outputs the result of a compilation attempt with its diagnostics.
func (p *Printer) PrintCompilation(outcome *types.CompilationOutcome) {
	if outcome == nil {
		return
	}

	var sb strings.Builder
	if outcome.Success {
		sb.WriteString("✅ Compiled successfully\n")
	} else {
		sb.WriteString(fmt.Sprintf("❌ %s\n", outcome.Kind))
	}
	if outcome.Backend != "" {
		sb.WriteString(fmt.Sprintf("Backend:   %s\n", outcome.Backend))
	}
	if outcome.Artifact != "" {
		sb.WriteString(fmt.Sprintf("Artifact:  %s\n", outcome.Artifact))
	}

	count := min(len(outcome.Errors), maxItemsToShow)
	for _, e := range outcome.Errors[:count] {
		loc := "?"
		if e.Line > 0 {
			loc = fmt.Sprintf("%d", e.Line)
		}
		sb.WriteString(fmt.Sprintf("\n[line %s] %s\n", loc, e.Message))
		if e.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("  Fix: %s\n", e.Suggestion))
		}
	}
	if len(outcome.Errors) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more errors\n", len(outcome.Errors)-maxItemsToShow))
	}
	if len(outcome.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("\n%d warning(s)", len(outcome.Warnings)))
	}

	p.printBox("COMPILATION", strings.TrimSuffix(sb.String(), "\n"))
}
