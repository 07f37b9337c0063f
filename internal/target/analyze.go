// Package target derives the structured form of a job posting and ingests postings from URLs.
package target

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/jonathan/latex-resume-agent/internal/fetch"
	"github.com/jonathan/latex-resume-agent/internal/llm"
	"github.com/jonathan/latex-resume-agent/internal/prompts"
	"github.com/jonathan/latex-resume-agent/internal/schemas"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

const (
	// AnalyzeTemperature keeps extraction close to deterministic.
	AnalyzeTemperature float32 = 0.1
	// MaxAnalyzeChars bounds how much posting text is sent for analysis.
	MaxAnalyzeChars = 6000
)

// Analyze extracts title, company, skills and keywords from rawText. Any failure (service
// error, unparseable or schema-invalid output) is logged and yields an empty structure, never an
// error, so ranking falls back to neutral tag and keyword scores.
func Analyze(ctx context.Context, client llm.Client, rawText string) *types.ParsedTarget {
	empty := emptyTarget()
	text := strings.TrimSpace(rawText)
	if text == "" || client == nil {
		return empty
	}
	if r := []rune(text); len(r) > MaxAnalyzeChars {
		text = string(r[:MaxAnalyzeChars])
	}

	system, err := prompts.Get("target.json", "analyze-system")
	if err != nil {
		log.Printf("[target] %v", err)
		return empty
	}
	prompt := llm.BuildExtractionPrompt(llm.TargetAnalysisSchema(), text)

	raw, err := client.GenerateJSON(ctx, prompt, llm.GenerateOptions{
		Tier:              llm.TierLite,
		SystemInstruction: system,
		Temperature:       llm.Temperature(AnalyzeTemperature),
	})
	if err != nil {
		log.Printf("[target] analysis failed: %v", err)
		return empty
	}

	payload := llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schemas.TargetAnalysis, payload); err != nil {
		log.Printf("[target] analysis output rejected: %v", err)
		return empty
	}
	var parsed types.ParsedTarget
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		log.Printf("[target] analysis output unparseable: %v", err)
		return empty
	}
	parsed.Title = strings.TrimSpace(parsed.Title)
	parsed.Company = strings.TrimSpace(parsed.Company)
	parsed.RequiredSkills = cleanList(parsed.RequiredSkills)
	parsed.PreferredSkills = cleanList(parsed.PreferredSkills)
	parsed.Keywords = cleanList(parsed.Keywords)
	return &parsed
}

// Ensure fills in target.Parsed via Analyze when it is missing.
func Ensure(ctx context.Context, client llm.Client, target *types.TargetDescription) {
	if target == nil || target.Parsed != nil {
		return
	}
	target.Parsed = Analyze(ctx, client, target.RawText)
}

// FromURL fetches a posting and returns it as an unparsed target description.
func FromURL(ctx context.Context, f *fetch.Fetcher, url string) (*types.TargetDescription, error) {
	page, err := f.Posting(ctx, url)
	if err != nil {
		return nil, err
	}
	if page.Rendered {
		log.Printf("[target] %s required browser rendering", url)
	}
	return &types.TargetDescription{RawText: page.Text}, nil
}

func emptyTarget() *types.ParsedTarget {
	return &types.ParsedTarget{
		RequiredSkills:  []string{},
		PreferredSkills: []string{},
		Keywords:        []string{},
	}
}

// cleanList trims entries and drops blanks and case-insensitive duplicates.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
