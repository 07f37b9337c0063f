package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/latex-resume-agent/internal/types"
)

// ErrStatusConflict is returned when a record is no longer in the status an update expected,
// typically because another run moved it first.
var ErrStatusConflict = errors.New("resume status changed concurrently")

// Resume is a stored resume record: the template, verified facts and target it was requested
// with, plus the latest generation and compilation results.
type Resume struct {
	ID            uuid.UUID                 `json:"id"`
	OwnerID       uuid.UUID                 `json:"owner_id"`
	Template      string                    `json:"template"`
	Facts         *types.FactsBundle        `json:"facts"`
	Target        *types.TargetDescription  `json:"target"`
	Status        types.CompilationStatus   `json:"status"`
	Generation    *types.GenerationResult   `json:"generation,omitempty"`
	Compilation   *types.CompilationOutcome `json:"compilation,omitempty"`
	Artifact      string                    `json:"artifact,omitempty"`
	ErrorMessages []string                  `json:"error_messages"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// CreateResume inserts a draft resume record and returns its ID
func (db *DB) CreateResume(ctx context.Context, ownerID uuid.UUID, template string, facts *types.FactsBundle, target *types.TargetDescription) (uuid.UUID, error) {
	factsJSON, err := marshalJSONB(facts)
	if err != nil {
		return uuid.Nil, err
	}
	targetJSON, err := marshalJSONB(target)
	if err != nil {
		return uuid.Nil, err
	}
	if factsJSON == nil || targetJSON == nil {
		return uuid.Nil, fmt.Errorf("failed to create resume: facts and target are required")
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO resumes (owner_id, template, facts, target, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		ownerID, template, factsJSON, targetJSON, types.StatusDraft,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create resume: %w", err)
	}
	return id, nil
}

// GetResume retrieves a resume record by ID. Returns nil, nil when it does not exist.
func (db *DB) GetResume(ctx context.Context, id uuid.UUID) (*Resume, error) {
	var (
		r                                      Resume
		status                                 string
		facts, target, generation, compilation []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, owner_id, template, facts, target, status, generation, compilation,
		        artifact, error_messages, created_at, updated_at
		 FROM resumes WHERE id = $1`, id,
	).Scan(&r.ID, &r.OwnerID, &r.Template, &facts, &target, &status, &generation, &compilation,
		&r.Artifact, &r.ErrorMessages, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	r.Status = types.CompilationStatus(status)

	if r.Facts, err = unmarshalJSONB[types.FactsBundle](facts); err != nil {
		return nil, err
	}
	if r.Target, err = unmarshalJSONB[types.TargetDescription](target); err != nil {
		return nil, err
	}
	if r.Generation, err = unmarshalJSONB[types.GenerationResult](generation); err != nil {
		return nil, err
	}
	if r.Compilation, err = unmarshalJSONB[types.CompilationOutcome](compilation); err != nil {
		return nil, err
	}
	return &r, nil
}

// TransitionResume moves a record from one status to another. The move must be allowed by the
// status lifecycle (or restart a terminal record as a draft) and the record must still be in
// from; otherwise ErrStatusConflict is returned.
func (db *DB) TransitionResume(ctx context.Context, id uuid.UUID, from, to types.CompilationStatus) error {
	if err := checkTransition(from, to); err != nil {
		return err
	}
	return db.updateResume(ctx, id, from,
		`UPDATE resumes SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2`, to)
}

// SaveGeneration stores a generation result and moves the record from generating to generated.
func (db *DB) SaveGeneration(ctx context.Context, id uuid.UUID, result *types.GenerationResult) error {
	payload, err := marshalJSONB(result)
	if err != nil {
		return err
	}
	return db.updateResume(ctx, id, types.StatusGenerating,
		`UPDATE resumes
		 SET generation = $3, status = $4, error_messages = '{}', updated_at = NOW()
		 WHERE id = $1 AND status = $2`, payload, types.StatusGenerated)
}

// SaveCompilation stores a compilation outcome and moves the record from compiling to next.
// Error messages from the outcome are stored on the record.
func (db *DB) SaveCompilation(ctx context.Context, id uuid.UUID, outcome *types.CompilationOutcome, next types.CompilationStatus) error {
	if err := checkTransition(types.StatusCompiling, next); err != nil {
		return err
	}
	payload, err := marshalJSONB(outcome)
	if err != nil {
		return err
	}
	var (
		artifact string
		messages = []string{}
	)
	if outcome != nil {
		artifact = outcome.Artifact
		messages = outcome.ErrorMessages()
	}
	return db.updateResume(ctx, id, types.StatusCompiling,
		`UPDATE resumes
		 SET compilation = $3, status = $4, artifact = $5, error_messages = $6, updated_at = NOW()
		 WHERE id = $1 AND status = $2`, payload, next, artifact, messages)
}

// FailResume moves a record from the given in-progress status to error and records why.
func (db *DB) FailResume(ctx context.Context, id uuid.UUID, from types.CompilationStatus, messages []string) error {
	if err := checkTransition(from, types.StatusError); err != nil {
		return err
	}
	return db.updateResume(ctx, id, from,
		`UPDATE resumes SET status = $3, error_messages = $4, updated_at = NOW()
		 WHERE id = $1 AND status = $2`, types.StatusError, nonNil(messages))
}

// ListResumes returns the owner's resume records, newest first, without their payloads.
func (db *DB) ListResumes(ctx context.Context, ownerID uuid.UUID) ([]Resume, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, owner_id, template, status, artifact, error_messages, created_at, updated_at
		 FROM resumes WHERE owner_id = $1
		 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	resumes := []Resume{}
	for rows.Next() {
		var (
			r      Resume
			status string
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Template, &status, &r.Artifact, &r.ErrorMessages,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		r.Status = types.CompilationStatus(status)
		resumes = append(resumes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	return resumes, nil
}

// updateResume runs a status-guarded update. Arguments $1 and $2 are always id and from.
func (db *DB) updateResume(ctx context.Context, id uuid.UUID, from types.CompilationStatus, query string, args ...any) error {
	tag, err := db.pool.Exec(ctx, query, append([]any{id, from}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update resume: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: resume %s is not %s", ErrStatusConflict, id, from)
	}
	return nil
}

// checkTransition allows lifecycle moves plus restarting a terminal record as a draft.
func checkTransition(from, to types.CompilationStatus) error {
	if from.IsTerminal() && to == from.Restart() {
		return nil
	}
	_, err := from.Transition(to)
	return err
}
