package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/latex-resume-agent/internal/db"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

// Store persists resume records and reads the owner's content items. *db.DB implements it.
type Store interface {
	GetResume(ctx context.Context, id uuid.UUID) (*db.Resume, error)
	ListContentItems(ctx context.Context, ownerID uuid.UUID) ([]types.ContentItem, error)
	TransitionResume(ctx context.Context, id uuid.UUID, from, to types.CompilationStatus) error
	SaveGeneration(ctx context.Context, id uuid.UUID, result *types.GenerationResult) error
	SaveCompilation(ctx context.Context, id uuid.UUID, outcome *types.CompilationOutcome, next types.CompilationStatus) error
	FailResume(ctx context.Context, id uuid.UUID, from types.CompilationStatus, messages []string) error
}

var _ Store = (*db.DB)(nil)

// Generate synthesizes markup for a stored record, moving it draft -> generating -> generated.
// A record in a terminal state restarts as a draft first. On failure the record ends in error.
func (r *Runner) Generate(ctx context.Context, id uuid.UUID) (*types.GenerationResult, error) {
	rec, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	status := rec.Status
	if status.IsTerminal() {
		if err := r.store.TransitionResume(ctx, id, status, status.Restart()); err != nil {
			return nil, err
		}
		status = status.Restart()
	}
	if err := r.store.TransitionResume(ctx, id, status, types.StatusGenerating); err != nil {
		return nil, err
	}

	tgt := rec.Target
	if tgt == nil {
		tgt = &types.TargetDescription{}
	}
	var items []types.ContentItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.analyze(gctx, tgt, id.String())
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = r.store.ListContentItems(gctx, rec.OwnerID)
		if err != nil {
			return &StepError{Step: StepRank, Cause: fmt.Errorf("failed to load content items: %w", err)}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		r.fail(ctx, id, types.StatusGenerating, err)
		return nil, err
	}

	res, err := r.generate(ctx, rec.Template, rec.Facts, tgt, items, id.String())
	if err != nil {
		r.fail(ctx, id, types.StatusGenerating, err)
		return nil, err
	}
	if err := r.store.SaveGeneration(ctx, id, res.Generation); err != nil {
		r.fail(ctx, id, types.StatusGenerating, err)
		return nil, err
	}
	return res.Generation, nil
}

// Compile compiles a record's generated markup, moving it generated -> compiling -> compiled or
// error. When no compiler is available the record returns to generated, since nothing was attempted.
func (r *Runner) Compile(ctx context.Context, id uuid.UUID) (*types.CompilationOutcome, error) {
	if r.compiler == nil {
		return nil, &StepError{Step: StepCompile, Cause: errors.New("no compiler configured")}
	}
	rec, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Generation == nil {
		return nil, ErrNotGenerated
	}
	if err := r.store.TransitionResume(ctx, id, rec.Status, types.StatusCompiling); err != nil {
		return nil, err
	}

	outcome, err := r.compiler.Compile(ctx, rec.Generation.Markup, id.String())
	if err != nil {
		err = &StepError{Step: StepCompile, Cause: err}
		r.fail(ctx, id, types.StatusCompiling, err)
		return nil, err
	}

	next := statusAfter(outcome)
	if err := r.store.SaveCompilation(ctx, id, outcome, next); err != nil {
		r.fail(ctx, id, types.StatusCompiling, err)
		return nil, err
	}
	log.Printf("[pipeline] resume %s compiled: %s", id, outcome.Kind)
	r.emit(StepCompile, id.String(), compileMessage(outcome), outcome)
	return outcome, nil
}

// Run generates and then compiles a stored record.
func (r *Runner) Run(ctx context.Context, id uuid.UUID) (*types.CompilationOutcome, error) {
	if _, err := r.Generate(ctx, id); err != nil {
		return nil, err
	}
	return r.Compile(ctx, id)
}

func (r *Runner) load(ctx context.Context, id uuid.UUID) (*db.Resume, error) {
	if r.store == nil {
		return nil, errors.New("pipeline has no store configured")
	}
	rec, err := r.store.GetResume(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// fail records err on the record. The update outlives a cancelled request context.
func (r *Runner) fail(ctx context.Context, id uuid.UUID, from types.CompilationStatus, err error) {
	if ferr := r.store.FailResume(context.WithoutCancel(ctx), id, from, []string{err.Error()}); ferr != nil {
		log.Printf("[pipeline] failed to record error for resume %s: %v", id, ferr)
	}
}

func statusAfter(outcome *types.CompilationOutcome) types.CompilationStatus {
	switch {
	case outcome.Success:
		return types.StatusCompiled
	case outcome.Kind == types.OutcomeNoCompiler:
		return types.StatusGenerated
	default:
		return types.StatusError
	}
}
