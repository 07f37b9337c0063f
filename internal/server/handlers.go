package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/jonathan/latex-resume-agent/internal/compile"
	"github.com/jonathan/latex-resume-agent/internal/normalize"
	"github.com/jonathan/latex-resume-agent/internal/pipeline"
	"github.com/jonathan/latex-resume-agent/internal/target"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

// RankRequest is the body of POST /rank.
type RankRequest struct {
	Target *types.TargetDescription `json:"target"`
	Items  []types.ContentItem      `json:"items"`
	TopN   int                      `json:"top_n,omitempty"`
}

// RankResponse is the body returned by POST /rank.
type RankResponse struct {
	Target *types.TargetDescription `json:"target"`
	Scores []types.MatchScore       `json:"scores"`
}

// SynthesizeRequest is the body of POST /synthesize.
type SynthesizeRequest struct {
	Template string                   `json:"template"`
	Facts    *types.FactsBundle       `json:"facts"`
	Target   *types.TargetDescription `json:"target,omitempty"`
}

// NormalizeRequest is the body of POST /normalize.
type NormalizeRequest struct {
	Markup string `json:"markup"`
}

// NormalizeResponse is the body returned by POST /normalize.
type NormalizeResponse struct {
	Markup   string           `json:"markup"`
	Warnings []string         `json:"warnings"`
	Changes  []string         `json:"changes"`
	Report   normalize.Report `json:"report"`
}

// CompileRequest is the body of POST /compile.
type CompileRequest struct {
	Markup   string `json:"markup"`
	OutputID string `json:"output_id,omitempty"`
}

// defaultTopN applies when a rank request leaves top_n unset.
const defaultTopN = 10

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := decode(w, r, &req); err != nil {
		s.failure(w, err)
		return
	}
	if req.Target == nil || (strings.TrimSpace(req.Target.RawText) == "" && req.Target.Parsed == nil) {
		s.failure(w, &ErrValidation{Field: "target", Message: "raw_text or parsed is required"})
		return
	}
	if req.TopN < 0 {
		s.failure(w, &ErrValidation{Field: "top_n", Message: "must be non-negative"})
		return
	}
	if req.TopN == 0 {
		req.TopN = defaultTopN
	}

	target.Ensure(r.Context(), s.analyzer, req.Target)
	scores, err := s.ranker.Rank(r.Context(), req.Target, req.Items, req.TopN)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, RankResponse{Target: req.Target, Scores: scores})
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req SynthesizeRequest
	if err := decode(w, r, &req); err != nil {
		s.failure(w, err)
		return
	}
	if strings.TrimSpace(req.Template) == "" {
		s.failure(w, &ErrValidation{Field: "template", Message: "is required"})
		return
	}
	if req.Facts == nil {
		s.failure(w, &ErrValidation{Field: "facts", Message: "is required"})
		return
	}

	var tc *types.TargetContext
	if req.Target != nil {
		target.Ensure(r.Context(), s.analyzer, req.Target)
		tc = req.Target.Context()
	}
	result, err := s.synth.Synthesize(r.Context(), req.Template, req.Facts, tc)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := decode(w, r, &req); err != nil {
		s.failure(w, err)
		return
	}

	markup, report := normalize.NormalizeWithReport(req.Markup)
	s.jsonResponse(w, http.StatusOK, NormalizeResponse{
		Markup:   markup,
		Warnings: nonNil(report.Warnings()),
		Changes:  nonNil(report.Changes()),
		Report:   report,
	})
}

// handleCompile always answers 200 with the outcome when compilation was attempted or refused;
// clients read outcome.kind. Only infrastructure failures produce an error status.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if err := decode(w, r, &req); err != nil {
		s.failure(w, err)
		return
	}
	if strings.TrimSpace(req.Markup) == "" {
		s.failure(w, &ErrValidation{Field: "markup", Message: "is required"})
		return
	}
	if !compile.ValidOutputID(req.OutputID) {
		s.failure(w, &ErrValidation{Field: "output_id", Message: "may only contain letters, digits, '_' and '-'"})
		return
	}

	outcome, err := s.compiler.Compile(r.Context(), req.Markup, req.OutputID)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, outcome)
}

func (s *Server) decodeRun(w http.ResponseWriter, r *http.Request) (*pipeline.Request, error) {
	var req pipeline.Request
	if err := decode(w, r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Template) == "" {
		return nil, &ErrValidation{Field: "template", Message: "is required"}
	}
	if req.Facts == nil {
		return nil, &ErrValidation{Field: "facts", Message: "is required"}
	}
	if !compile.ValidOutputID(req.OutputID) {
		return nil, &ErrValidation{Field: "output_id", Message: "may only contain letters, digits, '_' and '-'"}
	}
	return &req, nil
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRun(w, r)
	if err != nil {
		s.failure(w, err)
		return
	}
	result, err := s.runner.Execute(r.Context(), *req)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleRunStream runs the pipeline and streams each step as a server-sent event.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRun(w, r)
	if err != nil {
		s.failure(w, err)
		return
	}
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	runner := s.runner.Observe(func(e pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", e); err != nil {
			log.Printf("[server] dropped progress event %s: %v", e.Step, err)
		}
	})
	result, err := runner.Execute(r.Context(), *req)
	if err != nil {
		log.Printf("[server] streamed run failed: %v", err)
		err = sse.WriteError(err.Error())
	} else {
		err = sse.WriteComplete(result)
	}
	if err != nil {
		log.Printf("[server] failed to finish event stream: %v", err)
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
