package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-summary/internal/app"
	"smart-summary/internal/cache"
	"smart-summary/internal/client"
	"smart-summary/internal/config"
	"smart-summary/internal/domain"
	"smart-summary/internal/metrics"
	"smart-summary/internal/stream"
)

// backend is a fake streaming endpoint that records every request.
type backend struct {
	mu       sync.Mutex
	requests []domain.Request
	fail     string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req domain.Request
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	b.requests = append(b.requests, req)
	fail := b.fail
	b.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	enc := stream.NewEncoder(w)
	_ = enc.Metadata(map[string]any{"stage": "summarizing"})
	if fail != "" {
		_ = enc.Error(fail)
		return
	}
	_ = enc.Content("Summary of ")
	_ = enc.Content(req.Text)
	_ = enc.Done()
}

func (b *backend) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []string
	for _, r := range b.requests {
		out = append(out, r.Text)
	}
	return out
}

func testBuilder(t *testing.T, url string) depsBuilder {
	t.Helper()
	return func(options) (app.ClientDeps, error) {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		transport, err := client.New(url, nil, log)
		require.NoError(t, err)
		return app.ClientDeps{
			Config: config.Config{
				MaxLength:           200,
				CacheCapacity:       cache.DefaultCapacity,
				DebounceWindow:      30 * time.Millisecond,
				CacheNoticeDuration: time.Second,
			},
			Log:       log,
			Metrics:   metrics.New(),
			Transport: transport,
			Cache:     cache.NewFIFO(cache.DefaultCapacity),
		}, nil
	}
}

// syncBuffer is a bytes.Buffer safe for the printer goroutines and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(t *testing.T, b *backend, in io.Reader, args ...string) (string, string, error) {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	var out, errOut syncBuffer
	cmd := newRootCmd(in, &out, &errOut, testBuilder(t, srv.URL))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestSummarizeArgs(t *testing.T) {
	b := &backend{}
	out, errOut, err := execute(t, b, strings.NewReader(""), "hello", "world")

	require.NoError(t, err)
	assert.Equal(t, "Summary of hello world\n", out)
	assert.Empty(t, errOut)
	assert.Equal(t, []string{"hello world"}, b.texts())
}

func TestSummarizeStdin(t *testing.T) {
	b := &backend{}
	out, _, err := execute(t, b, strings.NewReader("piped text"), "--max-length", "42")

	require.NoError(t, err)
	assert.Equal(t, "Summary of piped text\n", out)

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.requests, 1)
	assert.Equal(t, 42, b.requests[0].MaxLength)
}

func TestSummarizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("file body"), 0o600))

	b := &backend{}
	out, _, err := execute(t, b, strings.NewReader(""), "--file", path)

	require.NoError(t, err)
	assert.Equal(t, "Summary of file body\n", out)
}

func TestSummarizeBlankInput(t *testing.T) {
	b := &backend{}
	_, errOut, err := execute(t, b, strings.NewReader("  \n "))

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, errOut, "text must not be blank")
	assert.Empty(t, b.texts())
}

func TestSummarizeServerFailure(t *testing.T) {
	b := &backend{fail: "model unavailable"}
	out, errOut, err := execute(t, b, strings.NewReader(""), "some", "text")

	require.Error(t, err)
	assert.Empty(t, strings.TrimSpace(out))
	assert.Equal(t, "error: model unavailable\n", errOut, "failure is reported once")
}

func TestWatchDebouncesBursts(t *testing.T) {
	b := &backend{}
	out, _, err := execute(t, b, strings.NewReader("first paste\nsecond paste\n\n"), "--watch")

	require.NoError(t, err)
	assert.Equal(t, []string{"second paste"}, b.texts())
	assert.Equal(t, "Summary of second paste\n", out)
}

func TestWatchServesRepeatsFromCache(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b)
	defer srv.Close()

	pr, pw := io.Pipe()
	var out, errOut syncBuffer
	cmd := newRootCmd(pr, &out, &errOut, testBuilder(t, srv.URL))
	cmd.SetArgs([]string{"--watch"})

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()

	_, err := io.WriteString(pw, "same text\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Summary of same text\n")
	}, 2*time.Second, 5*time.Millisecond)

	_, err = io.WriteString(pw, "same   text\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "(cached)")
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, pw.Close())

	require.NoError(t, <-done)
	assert.Equal(t, []string{"same text"}, b.texts())
}

func TestFileAndArgsConflict(t *testing.T) {
	_, _, err := execute(t, &backend{}, strings.NewReader(""), "--file", "x.txt", "extra")
	assert.Error(t, err)
}
