package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postingHTML = `<html><body>
<nav>Jobs | About</nav>
<div class="job-description">
  <h1>Senior Go Engineer</h1>
  <p>We need   Go and Docker experience.</p>
</div>
<form id="application-form">Name: <input></form>
<footer>Copyright</footer>
</body></html>`

func TestDetectBoard(t *testing.T) {
	tests := []struct {
		url  string
		want Board
	}{
		{"https://boards.greenhouse.io/acme/jobs/123", BoardGreenhouse},
		{"https://job-boards.greenhouse.io/acme/jobs/123", BoardGreenhouse},
		{"https://jobs.lever.co/acme/abc", BoardLever},
		{"https://acme.wd5.myworkdayjobs.com/en-US/careers/job/1", BoardWorkday},
		{"https://jobs.ashbyhq.com/acme/1", BoardAshby},
		{"https://acme.com/careers/1", BoardGeneric},
		{"https://notgreenhouse.io.evil.com/x", BoardGeneric},
		{"::bad", BoardGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBoard(tt.url))
		})
	}
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText(postingHTML, BoardGeneric)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer\nWe need Go and Docker experience.", text)
}

func TestExtractText_FallsBackToBody(t *testing.T) {
	text, err := ExtractText(`<html><body><p>Only body</p><script>var x = 1;</script></body></html>`, BoardGeneric)
	require.NoError(t, err)
	assert.Equal(t, "Only body", text)
}

func TestBoardSelectorsIncludeGenericFallback(t *testing.T) {
	sel := BoardLever.ContentSelectors()
	assert.Equal(t, ".posting-page", sel[0])
	assert.Contains(t, sel, "main")
	assert.Contains(t, BoardGreenhouse.NoiseSelectors(), "form")
	assert.Contains(t, BoardGreenhouse.NoiseSelectors(), ".voluntary-self-id")
}

func TestFetcher_Posting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(postingHTML))
	}))
	defer server.Close()

	page, err := NewFetcher(WithMinTextLength(10)).Posting(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, BoardGeneric, page.Board)
	assert.False(t, page.Rendered)
	assert.Contains(t, page.Text, "Senior Go Engineer")
}

func TestFetcher_RendersThinPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	defer server.Close()

	rendered := "<html><body><main>" + strings.Repeat("Build distributed systems in Go. ", 20) + "</main></body></html>"
	var renderCalls int
	f := NewFetcher(WithRenderer(func(_ context.Context, url string) (string, error) {
		renderCalls++
		assert.Equal(t, server.URL, url)
		return rendered, nil
	}))

	page, err := f.Posting(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, renderCalls)
	assert.True(t, page.Rendered)
	assert.Contains(t, page.Text, "Build distributed systems in Go.")
}

func TestFetcher_RenderFailureKeepsPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><main>short</main></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(WithRenderer(func(context.Context, string) (string, error) {
		return "", errors.New("chrome not installed")
	}))
	page, err := f.Posting(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, page.Rendered)
	assert.Equal(t, "short", page.Text)
}

func TestFetcher_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher().Posting(context.Background(), server.URL)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "HTTP status 404")

	_, err = NewFetcher().Posting(context.Background(), "not-a-valid-url")
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
}
