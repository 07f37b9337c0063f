// Package pipeline orchestrates one resume request: target analysis, ranking, selection,
// grounded synthesis and compilation, optionally driving a stored record through its
// status lifecycle.
package pipeline

import (
	"context"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/latex-resume-agent/internal/llm"
	"github.com/jonathan/latex-resume-agent/internal/ranking"
	"github.com/jonathan/latex-resume-agent/internal/target"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

// Step names reported in progress events and step errors.
const (
	StepAnalyze    = "analyze_target"
	StepRank       = "rank"
	StepSelect     = "select"
	StepTailor     = "tailor"
	StepSynthesize = "synthesize"
	StepCompile    = "compile"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Message  string `json:"message"`
	ResumeID string `json:"resume_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Ranker scores content items against a target.
type Ranker interface {
	Rank(ctx context.Context, target *types.TargetDescription, items []types.ContentItem, topN int) ([]types.MatchScore, error)
}

// Synthesizer produces resume markup grounded in a facts bundle.
type Synthesizer interface {
	Synthesize(ctx context.Context, template string, facts *types.FactsBundle, target *types.TargetContext) (*types.GenerationResult, error)
}

// Tailorer rephrases a featured item toward the target's vocabulary. It returns the item
// unchanged when it cannot.
type Tailorer interface {
	TailorItem(ctx context.Context, item types.ContentItem, keywords []string) types.ContentItem
}

// Compiler turns markup into a document artifact.
type Compiler interface {
	Compile(ctx context.Context, markup, outputID string) (*types.CompilationOutcome, error)
}

// Selection controls how many ranked items are featured.
type Selection struct {
	TopN      int
	Threshold float64
	MinItems  int
	MaxItems  int
}

// maxTailorWorkers bounds concurrent tailoring calls.
const maxTailorWorkers = 3

// DefaultSelection ranks up to ten items and features three to six of them.
var DefaultSelection = Selection{
	TopN:      10,
	Threshold: ranking.DefaultSelectThreshold,
	MinItems:  ranking.DefaultMinItems,
	MaxItems:  ranking.DefaultMaxItems,
}

// Request is a stateless pipeline invocation.
type Request struct {
	Template string                   `json:"template"`
	Facts    *types.FactsBundle       `json:"facts"`
	Target   *types.TargetDescription `json:"target"`
	// Items are the ranking candidates; when empty, Facts.Items are ranked.
	Items       []types.ContentItem `json:"items,omitempty"`
	OutputID    string              `json:"output_id,omitempty"`
	SkipCompile bool                `json:"skip_compile,omitempty"`
}

// Result collects every stage's output.
type Result struct {
	Target      *types.TargetDescription  `json:"target"`
	Scores      []types.MatchScore        `json:"scores"`
	Selected    []types.MatchScore        `json:"selected"`
	Generation  *types.GenerationResult   `json:"generation"`
	Compilation *types.CompilationOutcome `json:"compilation,omitempty"`
}

// Runner wires the pipeline stages together. Store and compiler may be nil when only
// stateless generation is needed.
type Runner struct {
	store      Store
	ranker     Ranker
	synth      Synthesizer
	compiler   Compiler
	tailor     Tailorer
	analyzer   llm.Client
	selection  Selection
	onProgress ProgressCallback
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore enables the record-driven operations Generate, Compile and Run.
func WithStore(store Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithCompiler sets the compilation stage.
func WithCompiler(c Compiler) Option {
	return func(r *Runner) { r.compiler = c }
}

// WithTailoring rewrites each selected item toward the target before synthesis.
func WithTailoring(t Tailorer) Option {
	return func(r *Runner) { r.tailor = t }
}

// WithAnalyzer sets the generative client used to parse targets that arrive unparsed.
func WithAnalyzer(client llm.Client) Option {
	return func(r *Runner) { r.analyzer = client }
}

// WithSelection overrides DefaultSelection.
func WithSelection(s Selection) Option {
	return func(r *Runner) { r.selection = s }
}

// WithProgress registers a progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(r *Runner) { r.onProgress = cb }
}

// NewRunner creates a Runner from its required stages.
func NewRunner(ranker Ranker, synth Synthesizer, opts ...Option) *Runner {
	r := &Runner{ranker: ranker, synth: synth, selection: DefaultSelection}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe returns a copy of r that reports progress to cb instead.
func (r *Runner) Observe(cb ProgressCallback) *Runner {
	next := *r
	next.onProgress = cb
	return &next
}

// Execute runs the whole pipeline for one request without touching any stored record.
// An unparsed req.Target is analyzed in place.
// A compilation that ran but failed is reported in the result, not as an error.
func (r *Runner) Execute(ctx context.Context, req Request) (*Result, error) {
	tgt := req.Target
	if tgt == nil {
		tgt = &types.TargetDescription{}
	}
	r.analyze(ctx, tgt, "")

	candidates := req.Items
	if len(candidates) == 0 && req.Facts != nil {
		candidates = req.Facts.Items
	}

	res, err := r.generate(ctx, req.Template, req.Facts, tgt, candidates, "")
	if err != nil {
		return nil, err
	}
	if req.SkipCompile || r.compiler == nil {
		return res, nil
	}

	outcome, err := r.compiler.Compile(ctx, res.Generation.Markup, req.OutputID)
	if err != nil {
		return nil, &StepError{Step: StepCompile, Cause: err}
	}
	res.Compilation = outcome
	r.emit(StepCompile, "", compileMessage(outcome), outcome)
	return res, nil
}

// analyze fills in tgt.Parsed when missing.
func (r *Runner) analyze(ctx context.Context, tgt *types.TargetDescription, resumeID string) {
	if tgt.Parsed != nil {
		return
	}
	target.Ensure(ctx, r.analyzer, tgt)
	r.emit(StepAnalyze, resumeID, "Target analyzed", tgt)
}

// generate ranks candidates, selects the featured items and synthesizes markup.
func (r *Runner) generate(ctx context.Context, template string, facts *types.FactsBundle, tgt *types.TargetDescription, candidates []types.ContentItem, resumeID string) (*Result, error) {
	scores, err := r.ranker.Rank(ctx, tgt, candidates, r.selection.TopN)
	if err != nil {
		return nil, &StepError{Step: StepRank, Cause: err}
	}
	r.emit(StepRank, resumeID, "Content items ranked", scores)

	selected := ranking.SelectTop(scores, r.selection.Threshold, r.selection.MinItems, r.selection.MaxItems)
	r.emit(StepSelect, resumeID, "Items selected", selected)

	bundle := withItems(facts, candidates, selected)
	if r.tailorItems(ctx, bundle.Items, tailorKeywords(tgt)) {
		r.emit(StepTailor, resumeID, "Items tailored", bundle.Items)
	}

	gen, err := r.synth.Synthesize(ctx, template, bundle, tgt.Context())
	if err != nil {
		return nil, &StepError{Step: StepSynthesize, Cause: err}
	}
	log.Printf("[pipeline] generated %d bytes of markup (%d warnings)", len(gen.Markup), len(gen.Warnings))
	r.emit(StepSynthesize, resumeID, "Resume generated", gen)

	return &Result{Target: tgt, Scores: scores, Selected: selected, Generation: gen}, nil
}

// tailorItems rewrites items in place, a few at a time. It reports whether tailoring ran.
func (r *Runner) tailorItems(ctx context.Context, items []types.ContentItem, keywords []string) bool {
	if r.tailor == nil || len(items) == 0 || len(keywords) == 0 {
		return false
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxTailorWorkers)
	for i := range items {
		g.Go(func() error {
			items[i] = r.tailor.TailorItem(gctx, items[i], keywords)
			return nil
		})
	}
	_ = g.Wait()
	return true
}

// tailorKeywords is the target's required skills followed by its keywords, without repeats.
func tailorKeywords(tgt *types.TargetDescription) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range append(append([]string{}, tgt.RequiredSkills()...), tgt.Keywords()...) {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(k))
	}
	return out
}

// withItems returns a copy of facts whose Items are the selected candidates in ranked order.
func withItems(facts *types.FactsBundle, candidates []types.ContentItem, selected []types.MatchScore) *types.FactsBundle {
	var out types.FactsBundle
	if facts != nil {
		out = *facts
	}
	byID := make(map[string]types.ContentItem, len(candidates))
	for _, item := range candidates {
		byID[item.ID] = item
	}
	out.Items = make([]types.ContentItem, 0, len(selected))
	for _, s := range selected {
		if item, ok := byID[s.ItemID]; ok {
			out.Items = append(out.Items, item)
		}
	}
	return &out
}

func (r *Runner) emit(step, resumeID, message string, content any) {
	if r.onProgress != nil {
		r.onProgress(ProgressEvent{Step: step, Message: message, ResumeID: resumeID, Content: content})
	}
}

func compileMessage(outcome *types.CompilationOutcome) string {
	if outcome.Success {
		return "Compiled with " + outcome.Backend
	}
	return "Compilation ended: " + string(outcome.Kind)
}
