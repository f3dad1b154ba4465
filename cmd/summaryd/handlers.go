package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smart-summary/internal/app"
	"smart-summary/internal/cache"
	"smart-summary/internal/chunker"
	"smart-summary/internal/domain"
	"smart-summary/internal/extract"
	"smart-summary/internal/httputil"
	"smart-summary/internal/llm"
	"smart-summary/internal/stream"
)

func rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Smart Summary API"})
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func exampleHandler(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(text) == "" {
			httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Example text not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"text": text})
	}
}

// summarizeHandler returns the whole summary as {"summary": ...}.
func summarizeHandler(deps app.ServerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := httputil.DecodeRequest(r, deps.Config.MaxUploadSize)
		if err != nil {
			httputil.Unprocessable(deps.Log, w, err)
			return
		}

		summary, err := summarizeText(r.Context(), deps, req)
		if err != nil {
			failSummary(deps, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"summary": summary})
	}
}

// uploadHandler summarizes an uploaded txt, md or pdf file.
func uploadHandler(deps app.ServerDeps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		// Validate file size before parsing
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize)

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		contentType, err := extract.DetectType(header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		text, err := extract.Text(contentType, content)
		if err != nil {
			httputil.Unprocessable(deps.Log, w, &domain.ValidationError{Field: "file", Reason: err.Error()})
			return
		}

		req := domain.Request{Text: text, MaxLength: domain.DefaultMaxLength, Provider: r.FormValue("provider")}
		if raw := r.FormValue("max_length"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				httputil.Unprocessable(deps.Log, w, &domain.ValidationError{Field: "max_length", Reason: "must be an integer"})
				return
			}
			req.MaxLength = n
		}
		if err := domain.Validate(req); err != nil {
			httputil.Unprocessable(deps.Log, w, err)
			return
		}

		summary, err := summarizeText(r.Context(), deps, req)
		if err != nil {
			failSummary(deps, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"summary":  summary,
			"filename": header.Filename,
		})
	}
}

func summarizeText(ctx context.Context, deps app.ServerDeps, req domain.Request) (string, error) {
	key := cache.SummaryKey(req.Text, req.MaxLength)
	if summary, ok := lookupStored(ctx, deps, key); ok {
		return summary, nil
	}

	client, err := deps.LLM.Resolve(req.Provider, req.APIKey)
	if err != nil {
		return "", err
	}
	summary, err := client.Summarize(ctx, req.Text, req.MaxLength)
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	storeSummary(ctx, deps, key, summary)
	return summary, nil
}

func failSummary(deps app.ServerDeps, w http.ResponseWriter, err error) {
	if errors.Is(err, llm.ErrUnknownProvider) {
		httputil.Unprocessable(deps.Log, w, &domain.ValidationError{Field: "provider", Reason: err.Error()})
		return
	}
	httputil.Fail(deps.Log, w, err.Error(), err, http.StatusInternalServerError)
}

// streamHandler writes the summary in the frame protocol: stage metadata
// frames around content frames, then [DONE], or [ERROR] on failure.
func streamHandler(deps app.ServerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, err := httputil.DecodeRequest(r, deps.Config.MaxUploadSize)
		if err != nil {
			httputil.Unprocessable(deps.Log, w, err)
			return
		}

		done := deps.Metrics.StreamStarted()
		key := cache.SummaryKey(req.Text, req.MaxLength)

		if summary, ok := lookupStored(ctx, deps, key); ok {
			enc := startStream(w)
			err := replay(ctx, enc, summary, deps.Config.StreamDelay)
			done(finishStream(deps, enc, err, "cached", req.Text, summary))
			return
		}

		client, err := deps.LLM.Resolve(req.Provider, req.APIKey)
		if err != nil {
			done("rejected")
			failSummary(deps, w, err)
			return
		}

		enc := startStream(w)
		_ = enc.Metadata(map[string]any{"stage": "analyzing", "message": "Analyzing text type and complexity..."})
		words := len(strings.Fields(req.Text))
		_ = enc.Metadata(map[string]any{
			"stage":              "analysis_complete",
			"text_type":          textType(words),
			"compression_target": compressionTarget(words, req.MaxLength),
		})
		_ = enc.Metadata(map[string]any{"stage": "summarizing", "message": "Creating summary..."})

		var sb strings.Builder
		err = client.Stream(ctx, req.Text, req.MaxLength, func(delta string) error {
			sb.WriteString(delta)
			return enc.Content(delta)
		})
		summary := strings.TrimSuffix(sb.String(), enc.Held())
		result := finishStream(deps, enc, err, "completed", req.Text, summary)
		if result == "completed" {
			storeSummary(ctx, deps, key, summary)
		}
		done(result)
	}
}

func startStream(w http.ResponseWriter) *stream.Encoder {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return stream.NewEncoder(w)
}

// finishStream terminates the stream according to err and returns the
// metrics result label.
func finishStream(deps app.ServerDeps, enc *stream.Encoder, err error, success, text, summary string) string {
	switch {
	case err == nil:
		_ = enc.Metadata(map[string]any{
			"stage":                "complete",
			"compression_achieved": compressionAchieved(text, summary),
		})
		if err := enc.Done(); err != nil {
			deps.Log.Warn("failed to write stream terminator", "err", err)
		}
		return success
	case errors.Is(err, context.Canceled):
		deps.Log.Info("client went away mid-stream", "summary_chars", len(summary))
		return "cancelled"
	default:
		deps.Log.Error("summary stream failed", "err", err, "summary_chars", len(summary))
		_ = enc.Error("Stream failed: " + err.Error())
		return "error"
	}
}

// replay streams a stored summary word by word.
func replay(ctx context.Context, enc *stream.Encoder, summary string, delay time.Duration) error {
	_ = enc.Metadata(map[string]any{"stage": "summarizing", "message": "Using stored summary..."})
	for _, word := range chunker.StreamWords(summary) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Content(word); err != nil {
			return err
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil
}

func lookupStored(ctx context.Context, deps app.ServerDeps, key string) (string, bool) {
	summary, ok, err := deps.Store.GetSummary(ctx, key)
	if err != nil {
		deps.Log.Warn("summary store lookup failed", "err", err)
		return "", false
	}
	deps.Metrics.RecordStoreLookup(ok)
	return summary, ok
}

func storeSummary(ctx context.Context, deps app.ServerDeps, key, summary string) {
	if strings.TrimSpace(summary) == "" {
		return
	}
	if err := deps.Store.SetSummary(context.WithoutCancel(ctx), key, summary, deps.Config.StoreTTL); err != nil {
		deps.Log.Warn("failed to store summary", "err", err)
	}
}

func textType(words int) string {
	switch {
	case words < 100:
		return "short"
	case words < 1000:
		return "article"
	default:
		return "long_form"
	}
}

func compressionTarget(words, maxLength int) float64 {
	if words == 0 || maxLength >= words {
		return 1
	}
	return roundRatio(float64(maxLength) / float64(words))
}

func compressionAchieved(text, summary string) float64 {
	in := len(strings.Fields(text))
	if in == 0 {
		return 0
	}
	return roundRatio(float64(len(strings.Fields(summary))) / float64(in))
}

func roundRatio(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
