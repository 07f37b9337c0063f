package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/latex-resume-agent/internal/config"
	"github.com/jonathan/latex-resume-agent/internal/normalize"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

// isolateEnv clears every variable the config layer reads so tests never reach real services.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	for i := 1; i <= 6; i++ {
		t.Setenv(fmt.Sprintf("GEMINI_API_KEY_%d", i), "")
	}
	t.Setenv("EMBEDDING_PROVIDER", "none")
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ARTIFACT_S3_BUCKET", "")
	t.Setenv("ARTIFACT_S3_PREFIX", "")
	t.Setenv("ARTIFACT_DIR", t.TempDir())
	for _, k := range []string{"GENERATION_TIMEOUT", "SYNTHESIS_TIER", "SYNTHESIS_TEMPERATURE", "RANK_CONCURRENCY", "TAILOR_ITEMS"} {
		t.Setenv(k, "")
	}
}

// execute runs the root command with args after restoring every flag to its default.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNormalizeCommand(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	raw := "\\section{Skills}\n**Go**, *Kafka*\n"
	in := writeFile(t, dir, "in.tex", raw)
	out := filepath.Join(dir, "nested", "out.tex")

	require.NoError(t, execute(t, "normalize", "--in", in, "--out", out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, normalize.Normalize(raw), string(got))
}

func TestNormalizeCommand_Report(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "in.tex", `\textbf{open`)
	out := filepath.Join(dir, "report.json")

	require.NoError(t, execute(t, "normalize", "--in", in, "--out", out, "--report"))

	report, err := readJSON[normalize.Report](out)
	require.NoError(t, err)
	assert.False(t, report.Braces.Balanced())
	assert.Equal(t, 1, report.Braces.UnclosedOpen)
}

func TestNormalizeCommand_MissingInput(t *testing.T) {
	isolateEnv(t)
	err := execute(t, "normalize")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "in" not set`)

	err = execute(t, "normalize", "--in", "/nonexistent/file.tex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestRankCommand(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	targetPath := writeFile(t, dir, "target.json", `{
		"raw_text": "Backend engineer, Go required",
		"parsed": {"required_skills": ["Go"], "preferred_skills": [], "keywords": ["payments"]}
	}`)
	itemsPath := writeFile(t, dir, "items.json", `[
		{"id": "site", "title": "Portfolio site", "tags": ["CSS"]},
		{"id": "api", "title": "Payments API", "tags": ["Go"], "description": "payments in Go"}
	]`)
	out := filepath.Join(dir, "scores.json")

	require.NoError(t, execute(t, "rank", "--target", targetPath, "--items", itemsPath, "--out", out))

	scores, err := readJSON[[]types.MatchScore](out)
	require.NoError(t, err)
	require.NotEmpty(t, *scores)
	assert.Equal(t, "api", (*scores)[0].ItemID)
}

func TestRankCommand_Validation(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	itemsPath := writeFile(t, dir, "items.json", `[]`)

	err := execute(t, "rank", "--items", itemsPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--target or --target-url")

	err = execute(t, "rank", "--items", itemsPath, "--target", "t.txt", "--top-n", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--top-n must be positive")
}

func TestCompileCommand_Unsafe(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "resume.tex", "\\documentclass{article}\\begin{document}\\write18{ls}\\end{document}")
	out := filepath.Join(dir, "outcome.json")

	err := execute(t, "compile", "--in", in, "--out", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compilation did not succeed")

	outcome, readErr := readJSON[types.CompilationOutcome](out)
	require.NoError(t, readErr)
	assert.Equal(t, types.OutcomeUnsafe, outcome.Kind)
	assert.NotEmpty(t, outcome.Errors)
}

func TestCompileCommand_InvalidOutputID(t *testing.T) {
	isolateEnv(t)
	in := writeFile(t, t.TempDir(), "resume.tex", "x")
	err := execute(t, "compile", "--in", in, "--output-id", "../escape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --output-id")
}

func TestGenerativeCommandsRequireCredentials(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	tpl := writeFile(t, dir, "t.tex", `\documentclass{article}`)
	facts := writeFile(t, dir, "facts.json", `{"personal": {"name": "Ada"}}`)

	for _, args := range [][]string{
		{"synthesize", "--template", tpl, "--facts", facts},
		{"run", "--template", tpl, "--facts", facts},
		{"serve"},
	} {
		t.Run(args[0], func(t *testing.T) {
			err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "GEMINI_API_KEY")
		})
	}
}

func TestTailoringOption(t *testing.T) {
	cfg := &config.Config{}
	synth := newSynthesizer(cfg, nil)
	assert.Empty(t, tailoring(cfg, synth))

	cfg.TailorItems = true
	assert.Len(t, tailoring(cfg, synth), 1)
}

func TestLoadTarget(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writeFile(t, dir, "target.JSON", `{"raw_text": "Go engineer", "parsed": {"required_skills": ["Go"], "preferred_skills": [], "keywords": []}}`)
	textPath := writeFile(t, dir, "posting.txt", "We need a Go engineer.")
	ctx := context.Background()

	tgt, err := loadTarget(ctx, jsonPath, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, tgt.RequiredSkills())

	tgt, err = loadTarget(ctx, textPath, "")
	require.NoError(t, err)
	assert.Equal(t, "We need a Go engineer.", tgt.RawText)
	assert.Nil(t, tgt.Parsed)

	tgt, err = loadTarget(ctx, "", "")
	require.NoError(t, err)
	assert.Nil(t, tgt)

	_, err = loadTarget(ctx, textPath, "https://example.com/job")
	assert.Error(t, err)
}

func TestBuildRunRequest(t *testing.T) {
	resetFlags(rootCmd)
	dir := t.TempDir()
	request, err := json.Marshal(map[string]any{
		"template":  "from-request",
		"facts":     map[string]any{"personal": map[string]any{"name": "Ada"}},
		"output_id": "req_id",
	})
	require.NoError(t, err)
	runRequest = writeFile(t, dir, "request.json", string(request))
	runTemplate = writeFile(t, dir, "override.tex", "from-flag")
	t.Cleanup(func() { resetFlags(rootCmd) })

	req, err := buildRunRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-flag", req.Template, "flags override the request file")
	assert.Equal(t, "Ada", req.Facts.Personal.Name)
	assert.Equal(t, "req_id", req.OutputID)

	runOutputID = "../bad"
	_, err = buildRunRequest(context.Background())
	assert.Error(t, err)
}
