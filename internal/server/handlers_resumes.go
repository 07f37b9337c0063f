package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/latex-resume-agent/internal/db"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

// CreateResumeRequest is the body of POST /resumes.
type CreateResumeRequest struct {
	OwnerID  uuid.UUID                `json:"owner_id"`
	Template string                   `json:"template"`
	Facts    *types.FactsBundle       `json:"facts"`
	Target   *types.TargetDescription `json:"target"`
}

// CreateResumeResponse is the body returned by POST /resumes.
type CreateResumeResponse struct {
	ID     uuid.UUID               `json:"id"`
	Status types.CompilationStatus `json:"status"`
}

// ListResumesResponse is the body returned by GET /resumes.
type ListResumesResponse struct {
	Resumes []db.Resume `json:"resumes"`
}

// resumeID parses the {id} path value.
func resumeID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	return id, nil
}

func (s *Server) handleCreateResume(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.failure(w, errRecordsDisabled)
		return
	}
	var req CreateResumeRequest
	if err := decode(w, r, &req); err != nil {
		s.failure(w, err)
		return
	}
	switch {
	case req.OwnerID == uuid.Nil:
		s.failure(w, &ErrValidation{Field: "owner_id", Message: "is required"})
		return
	case strings.TrimSpace(req.Template) == "":
		s.failure(w, &ErrValidation{Field: "template", Message: "is required"})
		return
	case req.Target == nil:
		s.failure(w, &ErrValidation{Field: "target", Message: "is required"})
		return
	}
	if err := req.Facts.Validate(); err != nil {
		s.failure(w, &ErrValidation{Field: "facts", Message: err.Error()})
		return
	}

	id, err := s.store.CreateResume(r.Context(), req.OwnerID, req.Template, req.Facts, req.Target)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, CreateResumeResponse{ID: id, Status: types.StatusDraft})
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.failure(w, errRecordsDisabled)
		return
	}
	owner, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		s.failure(w, &ErrValidation{Field: "owner_id", Message: "must be a UUID"})
		return
	}
	resumes, err := s.store.ListResumes(r.Context(), owner)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, ListResumesResponse{Resumes: resumes})
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.failure(w, errRecordsDisabled)
		return
	}
	id, err := resumeID(r)
	if err != nil {
		s.failure(w, err)
		return
	}
	rec, err := s.store.GetResume(r.Context(), id)
	if err != nil {
		s.failure(w, err)
		return
	}
	if rec == nil {
		s.errorResponse(w, http.StatusNotFound, "resume not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleGenerateResume(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.failure(w, errRecordsDisabled)
		return
	}
	id, err := resumeID(r)
	if err != nil {
		s.failure(w, err)
		return
	}
	result, err := s.runner.Generate(r.Context(), id)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleCompileResume(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.failure(w, errRecordsDisabled)
		return
	}
	id, err := resumeID(r)
	if err != nil {
		s.failure(w, err)
		return
	}
	outcome, err := s.runner.Compile(r.Context(), id)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, outcome)
}
