// Package synthesis fills a LaTeX template from a verified facts bundle through the generative
// text service, then normalizes and audits the result.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/latex-resume-agent/internal/llm"
	"github.com/jonathan/latex-resume-agent/internal/normalize"
	"github.com/jonathan/latex-resume-agent/internal/prompts"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

const (
	// DefaultTemperature keeps template filling close to deterministic.
	DefaultTemperature float32 = 0.2
	// promptFile holds every synthesis prompt.
	promptFile = "synthesis.json"
	// maxTargetSkills caps the requirements listed in the target block.
	maxTargetSkills = 10
	// changeFilled is always the first recorded change.
	changeFilled = "Filled template with user data"
)

// Section titles dropped when the bundle has nothing to put under them.
var (
	experienceTitles = []string{"Experience", "Work Experience", "Professional Experience", "Employment", "Work History"}
	educationTitles  = []string{"Education"}
)

// Synthesizer produces grounded markup. It holds no per-request state.
type Synthesizer struct {
	client      llm.Client
	tier        llm.ModelTier
	temperature float32
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithTier selects the model tier used for synthesis.
func WithTier(tier llm.ModelTier) Option {
	return func(s *Synthesizer) {
		s.tier = tier
	}
}

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float32) Option {
	return func(s *Synthesizer) {
		s.temperature = t
	}
}

// NewSynthesizer creates a Synthesizer backed by client.
func NewSynthesizer(client llm.Client, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		client:      client,
		tier:        llm.TierAdvanced,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize fills template using only facts and returns normalized markup with audit warnings.
// Any error from the generative service is returned as a *GenerationError; the caller owns
// marking its record as failed.
func (s *Synthesizer) Synthesize(ctx context.Context, template string, facts *types.FactsBundle, target *types.TargetContext) (*types.GenerationResult, error) {
	if strings.TrimSpace(template) == "" {
		return nil, &InputError{Message: "template is empty"}
	}
	if err := facts.Validate(); err != nil {
		return nil, &InputError{Message: "facts bundle rejected", Cause: err}
	}

	prompt, err := BuildPrompt(template, facts, target)
	if err != nil {
		return nil, &InputError{Message: "failed to build prompt", Cause: err}
	}
	system, err := prompts.Get(promptFile, "system")
	if err != nil {
		return nil, &InputError{Message: "failed to load system prompt", Cause: err}
	}

	raw, err := s.client.GenerateContent(ctx, prompt, llm.GenerateOptions{
		Tier:              s.tier,
		SystemInstruction: system,
		Temperature:       llm.Temperature(s.temperature),
	})
	if errors.Is(err, llm.ErrGenerationTimeout) {
		return nil, &GenerationError{Message: "generative service timed out", Cause: err}
	}
	if err != nil {
		return nil, &GenerationError{Message: "generative service call failed", Cause: err}
	}

	markup, report := normalize.NormalizeWithReport(llm.CleanMarkupBlock(raw))
	markup, dropped := dropUnbackedSections(markup, facts)
	if !report.Braces.Balanced() {
		log.Printf("[synthesis] generated markup has %s", report.Braces)
	}
	for _, title := range report.RemovedSections {
		log.Printf("[synthesis] removed section %q containing placeholders", title)
	}

	warnings := append(report.Warnings(), AuditGrounding(markup, facts)...)
	changes := append([]string{changeFilled}, report.Changes()...)
	for _, title := range dropped {
		log.Printf("[synthesis] removed section %q with no supporting facts", title)
		changes = append(changes, fmt.Sprintf("Removed section '%s' with no supporting facts", title))
	}

	return &types.GenerationResult{
		Markup:     markup,
		Warnings:   warnings,
		Changes:    changes,
		TokensUsed: len(strings.Fields(raw)),
	}, nil
}

// BuildPrompt assembles the user prompt from the template, the rendered facts and optional target.
func BuildPrompt(template string, facts *types.FactsBundle, target *types.TargetContext) (string, error) {
	targetBlock, err := formatTargetContext(target)
	if err != nil {
		return "", err
	}
	return renderPrompt("generate", map[string]string{
		"Template":      template,
		"UserData":      FormatFacts(facts),
		"TargetContext": targetBlock,
	})
}

func renderPrompt(key string, data map[string]string) (string, error) {
	return prompts.Render(promptFile, key, data)
}

// dropUnbackedSections removes experience and education sections the bundle cannot fill.
func dropUnbackedSections(markup string, facts *types.FactsBundle) (string, []string) {
	var titles []string
	if !facts.HasEmployment() {
		titles = append(titles, experienceTitles...)
	}
	if !facts.HasEducation() {
		titles = append(titles, educationTitles...)
	}
	return normalize.ExciseTitledSections(markup, titles...)
}
