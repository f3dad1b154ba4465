package stream

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-summary/internal/domain"
)

// trackingBody records whether Close was called.
type trackingBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackingBody) Close() error {
	b.closed.Store(true)
	return nil
}

func responseWith(body io.ReadCloser) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: body}
}

func TestAccumulateConcatenatesVerbatim(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("data: Hello \n\ndata: world\n\ndata: [DONE]\n\n")}

	var progress []string
	res, err := Accumulate(context.Background(), responseWith(body), func(text string) {
		progress = append(progress, text)
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello world", res.Text)
	assert.Equal(t, []string{"Hello ", "Hello world"}, progress)
	assert.Equal(t, 2, res.ContentFrames)
	assert.True(t, body.closed.Load())
}

func TestAccumulateSuppressesMetadata(t *testing.T) {
	input := strings.Join([]string{
		`data: {"stage": "analyzing", "message": "Analyzing content type..."}`,
		`data: The plan uses {"x":1} internally`,
		`data: {"stage": "complete", "compression_achieved": 0.20}`,
		`data: [DONE]`,
	}, "\n\n") + "\n\n"

	res, err := Accumulate(context.Background(), responseWith(io.NopCloser(strings.NewReader(input))), nil)
	require.NoError(t, err)

	assert.Equal(t, `The plan uses {"x":1} internally`, res.Text)
	assert.Equal(t, 1, res.ContentFrames)
	assert.Equal(t, 2, res.SuppressedFrames)
}

func TestAccumulateErrorFrame(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("data: partial\n\ndata: [ERROR] model unavailable\n\ndata: ignored\n\n")}

	res, err := Accumulate(context.Background(), responseWith(body), nil)

	var serverErr *domain.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "model unavailable", serverErr.Message)
	assert.Equal(t, "partial", res.Text)
	assert.True(t, body.closed.Load())
}

func TestAccumulateMissingTerminator(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("data: Hello\n\ndata: world\n\n")}

	_, err := Accumulate(context.Background(), responseWith(body), nil)

	assert.ErrorIs(t, err, domain.ErrIncompleteStream)
	assert.True(t, body.closed.Load())
}

func TestAccumulateNoBody(t *testing.T) {
	called := false
	onProgress := func(string) { called = true }

	_, err := Accumulate(context.Background(), nil, onProgress)
	assert.ErrorIs(t, err, domain.ErrNoBody)

	_, err = Accumulate(context.Background(), &http.Response{Body: http.NoBody}, onProgress)
	assert.ErrorIs(t, err, domain.ErrNoBody)

	_, err = Accumulate(context.Background(), &http.Response{}, onProgress)
	assert.ErrorIs(t, err, domain.ErrNoBody)

	assert.False(t, called)
}

func TestAccumulateCancelledMidStream(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	firstChunk := make(chan struct{})
	done := make(chan error, 1)
	var updates atomic.Int32
	go func() {
		_, err := Accumulate(ctx, responseWith(pr), func(string) {
			if updates.Add(1) == 1 {
				close(firstChunk)
			}
		})
		done <- err
	}()

	_, err := pw.Write([]byte("data: one\n\n"))
	require.NoError(t, err)
	<-firstChunk

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("accumulator did not stop after cancellation")
	}

	// The reader was closed, so the writer side now fails.
	_, err = pw.Write([]byte("data: two\n\n"))
	assert.Error(t, err)
	assert.Equal(t, int32(1), updates.Load())
}

func TestAccumulateReadFailureIsNetworkError(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("data: one\n\n"))
		_ = pw.CloseWithError(io.ErrUnexpectedEOF)
	}()

	_, err := Accumulate(context.Background(), responseWith(pr), nil)

	var networkErr *domain.NetworkError
	require.ErrorAs(t, err, &networkErr)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
