package compile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRemoteURL is the public synchronous build endpoint.
const DefaultRemoteURL = "https://latex.ytotech.com/builds/sync"

const (
	maxRemoteResponse = 32 << 20
	remoteErrorPrefix = 200
)

var pdfMagic = []byte("%PDF")

// RemoteBackend posts the source to a compilation service. The response is an artifact when
// its body starts with the PDF magic bytes and an error payload otherwise, whatever the status.
type RemoteBackend struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
	limiter *rate.Limiter
}

// NewRemoteBackend returns a backend for url that sends at most one request per interval.
func NewRemoteBackend(url string, timeout, interval time.Duration) *RemoteBackend {
	if url == "" {
		url = DefaultRemoteURL
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RemoteBackend{
		URL:     url,
		Client:  &http.Client{},
		Timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Name implements Backend.
func (b *RemoteBackend) Name() string { return "remote" }

type remoteErrorPayload struct {
	Error    string            `json:"error"`
	LogFiles map[string]string `json:"log_files"`
}

// Compile implements Backend. A service that cannot be reached counts as unavailable.
func (b *RemoteBackend) Compile(ctx context.Context, job Job) (*Result, error) {
	if b.URL == "" {
		return nil, unavailable("remote compilation service not configured")
	}
	source, err := os.ReadFile(job.TexPath())
	if err != nil {
		return nil, &Error{Message: "failed to read source", Cause: err}
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, b.contextError(ctx, err)
		}
	}

	body, contentType, err := remoteForm(job.Name+".tex", source)
	if err != nil {
		return nil, &Error{Message: "failed to build request", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, body)
	if err != nil {
		return nil, &Error{Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", contentType)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, b.contextError(ctx, err)
		}
		return nil, unavailable("remote compilation service unreachable: %v", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	if err != nil {
		if ctx.Err() != nil {
			return nil, b.contextError(ctx, err)
		}
		return nil, &Error{Message: "failed to read response", Cause: err}
	}

	if bytes.HasPrefix(content, pdfMagic) {
		if err := os.WriteFile(job.PDFPath(), content, 0644); err != nil {
			return nil, &Error{Message: "failed to write artifact", Cause: err}
		}
		return &Result{ExitCode: 0, Log: "Compiled successfully using online service"}, nil
	}
	return remoteFailure(resp.StatusCode, content), nil
}

func (b *RemoteBackend) contextError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func remoteForm(filename string, source []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("compiler", "pdflatex"); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("target", filename); err != nil {
		return nil, "", err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, filename, filename))
	h.Set("Content-Type", "text/plain")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(source); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func remoteFailure(status int, content []byte) *Result {
	text := string(content)
	var payload remoteErrorPayload
	if err := json.Unmarshal(content, &payload); err == nil {
		detail := payload.Error
		if detail == "" {
			detail = "COMPILATION_ERROR"
		}
		output, ok := payload.LogFiles["output.log"]
		if !ok {
			output = "No detailed log available"
		}
		return &Result{
			ExitCode: 1,
			Log:      "LaTeX Compilation Error:\n" + output,
			Failure:  detail + ": Check LaTeX syntax. The template may have issues.",
		}
	}
	if text == "" {
		text = fmt.Sprintf("HTTP %d: Unknown error", status)
	}
	return &Result{
		ExitCode: 1,
		Log:      "Online compilation failed: " + text,
		Failure:  "Compilation error: " + truncate(text, remoteErrorPrefix),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
