package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/latex-resume-agent/internal/llm"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

type fakeAnalyzer struct {
	json  string
	calls int
}

func (f *fakeAnalyzer) GenerateContent(context.Context, string, llm.GenerateOptions) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeAnalyzer) GenerateJSON(context.Context, string, llm.GenerateOptions) (string, error) {
	f.calls++
	return f.json, nil
}

func (f *fakeAnalyzer) Close() error { return nil }

// fakeTailor appends a marker to each description and records the keywords it saw.
type fakeTailor struct {
	mu       sync.Mutex
	keywords []string
	calls    int
}

func (f *fakeTailor) TailorItem(_ context.Context, item types.ContentItem, keywords []string) types.ContentItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keywords = keywords
	item.Description += " (tailored)"
	return item
}

func TestExecute(t *testing.T) {
	facts := &types.FactsBundle{
		Personal: types.PersonalInfo{Name: "Ada Lovelace"},
		Items: []types.ContentItem{
			{ID: "p1", Title: "Payments API"},
			{ID: "p2", Title: "Static site"},
		},
	}
	ranker := &fakeRanker{scores: []types.MatchScore{{ItemID: "p1", TotalScore: 0.8}}}
	synth := &fakeSynth{markup: `\section{Projects}`}
	compiler := &fakeCompiler{outcome: &types.CompilationOutcome{Kind: types.OutcomeCompileError}}
	analyzer := &fakeAnalyzer{json: `{"title":"Go Engineer","required_skills":["Go"],"preferred_skills":[],"keywords":["payments"]}`}

	runner := NewRunner(ranker, synth, WithCompiler(compiler), WithAnalyzer(analyzer))
	res, err := runner.Execute(context.Background(), Request{
		Template: `\documentclass{article}`,
		Facts:    facts,
		Target:   &types.TargetDescription{RawText: "Go engineer for payments"},
		OutputID: "demo",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, []string{"Go"}, res.Target.Parsed.RequiredSkills)
	assert.Len(t, ranker.items, 2, "facts items are the default candidates")
	assert.Equal(t, []types.MatchScore{{ItemID: "p1", TotalScore: 0.8}}, res.Selected)
	require.Len(t, synth.facts.Items, 1)
	assert.Equal(t, "p1", synth.facts.Items[0].ID)
	assert.Len(t, facts.Items, 2, "caller's bundle is not modified")
	assert.Equal(t, `\section{Projects}`, res.Generation.Markup)
	assert.Equal(t, types.OutcomeCompileError, res.Compilation.Kind)
	assert.Equal(t, "demo", compiler.outputID)
}

func TestExecute_SkipCompile(t *testing.T) {
	compiler := &fakeCompiler{}
	runner := NewRunner(&fakeRanker{}, &fakeSynth{markup: "x"}, WithCompiler(compiler))

	res, err := runner.Execute(context.Background(), Request{
		Target:      parsedTarget(),
		Items:       []types.ContentItem{{ID: "a"}},
		SkipCompile: true,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Compilation)
	assert.Zero(t, compiler.calls)
	assert.NotNil(t, res.Generation)
}

func TestExecute_NilTarget(t *testing.T) {
	synth := &fakeSynth{markup: "x"}
	res, err := NewRunner(&fakeRanker{}, synth).Execute(context.Background(), Request{})
	require.NoError(t, err)
	require.NotNil(t, res.Target.Parsed)
	assert.Empty(t, res.Target.Parsed.RequiredSkills)
	assert.NotNil(t, synth.target)
}

func TestExecute_StepErrors(t *testing.T) {
	tests := []struct {
		name     string
		runner   *Runner
		wantStep string
	}{
		{
			name:     "rank",
			runner:   NewRunner(&fakeRanker{err: context.Canceled}, &fakeSynth{}),
			wantStep: StepRank,
		},
		{
			name:     "synthesize",
			runner:   NewRunner(&fakeRanker{}, &fakeSynth{err: errors.New("quota")}),
			wantStep: StepSynthesize,
		},
		{
			name:     "compile",
			runner:   NewRunner(&fakeRanker{}, &fakeSynth{markup: "x"}, WithCompiler(&fakeCompiler{err: errors.New("disk full")})),
			wantStep: StepCompile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.runner.Execute(context.Background(), Request{Target: parsedTarget()})
			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, tt.wantStep, stepErr.Step)
		})
	}
}

func TestWithItems(t *testing.T) {
	candidates := []types.ContentItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	selected := []types.MatchScore{{ItemID: "c"}, {ItemID: "missing"}, {ItemID: "a"}}

	out := withItems(nil, candidates, selected)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "c", out.Items[0].ID)
	assert.Equal(t, "a", out.Items[1].ID)
}

func TestObserve(t *testing.T) {
	var base []string
	runner := NewRunner(
		&fakeRanker{scores: []types.MatchScore{{ItemID: "p1", TotalScore: 0.9}}},
		&fakeSynth{markup: "x"},
		WithProgress(func(e ProgressEvent) { base = append(base, e.Step) }),
	)

	var observed []string
	_, err := runner.Observe(func(e ProgressEvent) { observed = append(observed, e.Step) }).Execute(context.Background(), Request{
		Template: "t",
		Facts:    &types.FactsBundle{Items: []types.ContentItem{{ID: "p1"}}},
		Target:   &types.TargetDescription{Parsed: &types.ParsedTarget{}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{StepRank, StepSelect, StepSynthesize}, observed)
	assert.Empty(t, base, "the original runner keeps its own callback")
}

func TestExecute_Tailoring(t *testing.T) {
	facts := &types.FactsBundle{
		Personal: types.PersonalInfo{Name: "Ada Lovelace"},
		Items: []types.ContentItem{
			{ID: "p1", Title: "Payments API", Description: "Card processing"},
			{ID: "p2", Title: "Static site", Description: "Blog"},
		},
	}
	tgt := parsedTarget()
	tgt.Parsed.Keywords = []string{"payments", "go"}

	ranker := &fakeRanker{scores: []types.MatchScore{{ItemID: "p2", TotalScore: 0.9}, {ItemID: "p1", TotalScore: 0.8}}}
	synth := &fakeSynth{markup: "x"}
	tailor := &fakeTailor{}
	var steps []string
	runner := NewRunner(ranker, synth,
		WithTailoring(tailor),
		WithProgress(func(e ProgressEvent) { steps = append(steps, e.Step) }),
	)

	_, err := runner.Execute(context.Background(), Request{Template: "t", Facts: facts, Target: tgt})
	require.NoError(t, err)

	assert.Equal(t, 2, tailor.calls)
	assert.Equal(t, []string{"Go", "payments"}, tailor.keywords, "required skills first, repeats dropped")
	require.Len(t, synth.facts.Items, 2)
	assert.Equal(t, "p2", synth.facts.Items[0].ID, "ranking order survives tailoring")
	assert.Equal(t, "Blog (tailored)", synth.facts.Items[0].Description)
	assert.Equal(t, "Card processing (tailored)", synth.facts.Items[1].Description)
	assert.Equal(t, "Card processing", facts.Items[0].Description, "caller's bundle is not modified")
	assert.Equal(t, []string{StepRank, StepSelect, StepTailor, StepSynthesize}, steps)
}

func TestExecute_TailoringNeedsKeywords(t *testing.T) {
	tailor := &fakeTailor{}
	runner := NewRunner(
		&fakeRanker{scores: []types.MatchScore{{ItemID: "p1", TotalScore: 0.9}}},
		&fakeSynth{markup: "x"},
		WithTailoring(tailor),
	)

	_, err := runner.Execute(context.Background(), Request{
		Template: "t",
		Facts:    &types.FactsBundle{Items: []types.ContentItem{{ID: "p1"}}},
		Target:   &types.TargetDescription{Parsed: &types.ParsedTarget{}},
	})
	require.NoError(t, err)
	assert.Zero(t, tailor.calls)
}
