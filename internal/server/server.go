// Package server provides the HTTP API for ranking, synthesis, normalization, compilation and
// record-driven pipeline runs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/latex-resume-agent/internal/db"
	"github.com/jonathan/latex-resume-agent/internal/llm"
	"github.com/jonathan/latex-resume-agent/internal/pipeline"
	"github.com/jonathan/latex-resume-agent/internal/server/ratelimit"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

// maxBodyBytes bounds request bodies; templates and fact bundles are small.
const maxBodyBytes = 5 << 20

// RecordStore backs the /resumes routes. *db.DB implements it.
type RecordStore interface {
	pipeline.Store
	CreateResume(ctx context.Context, ownerID uuid.UUID, template string, facts *types.FactsBundle, target *types.TargetDescription) (uuid.UUID, error)
	ListResumes(ctx context.Context, ownerID uuid.UUID) ([]db.Resume, error)
}

var _ RecordStore = (*db.DB)(nil)

// CredentialReporter exposes generative-service key health. *llm.CredentialPool implements it.
type CredentialReporter interface {
	Stats() []llm.CredentialStats
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	ranker      pipeline.Ranker
	synth       pipeline.Synthesizer
	compiler    pipeline.Compiler
	analyzer    llm.Client
	store       RecordStore
	credentials CredentialReporter
	runner      *pipeline.Runner
	rateLimiter *ratelimit.Limiter
}

// Config holds server configuration and the pipeline stages it exposes.
type Config struct {
	Port        int
	Ranker      pipeline.Ranker
	Synthesizer pipeline.Synthesizer
	Compiler    pipeline.Compiler
	Analyzer    llm.Client          // parses targets that arrive unparsed; optional
	Tailorer    pipeline.Tailorer   // rewrites selected items before synthesis; optional
	Store       RecordStore         // enables the /resumes routes; optional
	Credentials CredentialReporter  // reported by /health; optional
	Selection   *pipeline.Selection // defaults to pipeline.DefaultSelection
	RateLimit   *ratelimit.Config   // defaults to ratelimit.LoadConfig()
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Ranker == nil || cfg.Synthesizer == nil || cfg.Compiler == nil {
		return nil, errors.New("server requires a ranker, synthesizer and compiler")
	}

	opts := []pipeline.Option{pipeline.WithCompiler(cfg.Compiler), pipeline.WithAnalyzer(cfg.Analyzer)}
	if cfg.Store != nil {
		opts = append(opts, pipeline.WithStore(cfg.Store))
	}
	if cfg.Selection != nil {
		opts = append(opts, pipeline.WithSelection(*cfg.Selection))
	}
	if cfg.Tailorer != nil {
		opts = append(opts, pipeline.WithTailoring(cfg.Tailorer))
	}

	rl := cfg.RateLimit
	if rl == nil {
		rl = ratelimit.LoadConfig()
	}

	s := &Server{
		ranker:      cfg.Ranker,
		synth:       cfg.Synthesizer,
		compiler:    cfg.Compiler,
		analyzer:    cfg.Analyzer,
		store:       cfg.Store,
		credentials: cfg.Credentials,
		runner:      pipeline.NewRunner(cfg.Ranker, cfg.Synthesizer, opts...),
		rateLimiter: ratelimit.NewLimiter(rl),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Stage endpoints
	mux.HandleFunc("POST /rank", s.handleRank)
	mux.HandleFunc("POST /synthesize", s.handleSynthesize)
	mux.HandleFunc("POST /normalize", s.handleNormalize)
	mux.HandleFunc("POST /compile", s.handleCompile)

	// Whole pipeline without a stored record
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("POST /run/stream", s.handleRunStream)

	// Stored records
	mux.HandleFunc("POST /resumes", s.handleCreateResume)
	mux.HandleFunc("GET /resumes", s.handleListResumes)
	mux.HandleFunc("GET /resumes/{id}", s.handleGetResume)
	mux.HandleFunc("POST /resumes/{id}/generate", s.handleGenerateResume)
	mux.HandleFunc("POST /resumes/{id}/compile", s.handleCompileResume)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // synthesis plus compilation can take minutes
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	log.Println("[server] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.rateLimiter.Stop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("[server] stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients that exceed their per-endpoint budget
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[server] %s %s from %s in %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

// handleHealth returns server health status, with per-key cool-down state when known.
// The status is "degraded" while every key is cooling down.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"records": s.store != nil,
	}
	if s.credentials != nil {
		stats := s.credentials.Stats()
		available := 0
		for _, st := range stats {
			if !st.CoolingDown {
				available++
			}
		}
		if available == 0 && len(stats) > 0 {
			body["status"] = "degraded"
		}
		body["credentials"] = map[string]any{
			"total":     len(stats),
			"available": available,
			"slots":     stats,
		}
	}
	s.jsonResponse(w, http.StatusOK, body)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failure maps err to a status code and writes it.
func (s *Server) failure(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[server] request failed: %v", err)
	}
	s.errorResponse(w, status, err.Error())
}

// decode reads a size-limited JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// clientID extracts the client identifier (the remote IP) from the request.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	log.Printf("[rate-limit] limit exceeded: limit=%d remaining=%d", info.Limit, info.Remaining)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
