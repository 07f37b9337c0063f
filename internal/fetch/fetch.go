// Package fetch downloads job postings and reduces them to their readable text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fetch defaults.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; LatexResumeAgent/1.0)"
	// MinTextLength is the extracted length below which a page is treated as script-rendered.
	MinTextLength = 500
	maxBodyBytes  = 5 << 20
)

// RenderFunc returns the HTML of a page after scripts have run.
type RenderFunc func(ctx context.Context, url string) (string, error)

// Page is the readable content of one posting.
type Page struct {
	URL      string
	Board    Board
	Text     string
	Rendered bool
}

// Fetcher retrieves postings over HTTP and, when the plain response is too thin, through a renderer.
type Fetcher struct {
	client    *http.Client
	userAgent string
	render    RenderFunc
	minText   int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithRenderer enables the rendering fallback.
func WithRenderer(r RenderFunc) Option {
	return func(f *Fetcher) { f.render = r }
}

// WithMinTextLength overrides MinTextLength.
func WithMinTextLength(n int) Option {
	return func(f *Fetcher) { f.minText = n }
}

// NewFetcher returns a Fetcher with a DefaultTimeout client and no renderer.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
		minText:   MinTextLength,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Posting fetches rawURL and extracts the posting text. When the text is shorter than the
// minimum and a renderer is configured, the rendered page is used instead if it yields more.
func (f *Fetcher) Posting(ctx context.Context, rawURL string) (*Page, error) {
	html, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	board := DetectBoard(rawURL)
	text, err := ExtractText(html, board)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to parse HTML", Cause: err}
	}
	page := &Page{URL: rawURL, Board: board, Text: text}

	if len(strings.TrimSpace(text)) >= f.minText || f.render == nil {
		return page, nil
	}

	log.Printf("[fetch] %s yielded %d chars, rendering in browser", rawURL, len(text))
	rendered, err := f.render(ctx, rawURL)
	if err != nil {
		log.Printf("[fetch] browser rendering failed for %s: %v", rawURL, err)
		return page, nil
	}
	renderedText, err := ExtractText(rendered, board)
	if err != nil || len(renderedText) <= len(text) {
		return page, nil
	}
	page.Text = renderedText
	page.Rendered = true
	return page, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}
	return string(body), nil
}

// ExtractText strips noise from html and returns the text of the first matching content region,
// falling back to the body.
func ExtractText(html string, board Board) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find(strings.Join(board.NoiseSelectors(), ", ")).Remove()

	content := doc.Find("body")
	for _, selector := range board.ContentSelectors() {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	return collapseLines(content.Text()), nil
}

func collapseLines(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
