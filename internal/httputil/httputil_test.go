package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-summary/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouterRecoversPanics(t *testing.T) {
	r := NewRouter(discardLogger(), time.Second)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	r.Get("/healthz", HealthHandler(discardLogger()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestFailWritesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(discardLogger(), rec, "Stream failed: quota", nil, 0)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Stream failed: quota", body["detail"])
}

func TestUnprocessable(t *testing.T) {
	rec := httptest.NewRecorder()
	Unprocessable(discardLogger(), rec, &domain.ValidationError{Field: "max_length", Reason: "must be at most 1000"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Detail []FieldProblem `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Detail, 1)
	assert.Equal(t, []string{"body", "max_length"}, body.Detail[0].Loc)
	assert.Equal(t, "max_length must be at most 1000", body.Detail[0].Msg)
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLen   int
		wantField string
		wantErr   bool
	}{
		{name: "default max_length", body: `{"text":"hello"}`, wantLen: domain.DefaultMaxLength},
		{name: "explicit max_length", body: `{"text":"hello","max_length":50}`, wantLen: 50},
		{name: "zero max_length", body: `{"text":"hello","max_length":0}`, wantErr: true, wantField: "max_length"},
		{name: "max_length too large", body: `{"text":"hello","max_length":1001}`, wantErr: true, wantField: "max_length"},
		{name: "blank text", body: `{"text":"   "}`, wantErr: true, wantField: "text"},
		{name: "missing text", body: `{}`, wantErr: true, wantField: "text"},
		{name: "malformed", body: `{"text":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(tt.body))
			req, err := DecodeRequest(r, 1<<20)
			if tt.wantErr {
				var vErr *domain.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.wantField, vErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "hello", req.Text)
			assert.Equal(t, tt.wantLen, req.MaxLength)
		})
	}
}
