package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"smart-summary/internal/domain"
)

// ProgressFunc receives the cumulative summary text after each accepted
// content frame.
type ProgressFunc func(text string)

// Result is the outcome of draining one response.
type Result struct {
	Text             string
	ContentFrames    int
	SuppressedFrames int
}

// Accumulate drains resp through a Decoder, drops metadata frames and returns
// the concatenated content. The body is closed on every return path; when ctx
// is cancelled the body is closed early so a blocked read returns.
func Accumulate(ctx context.Context, resp *http.Response, onProgress ProgressFunc) (Result, error) {
	if resp == nil || resp.Body == nil || resp.Body == http.NoBody {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return Result{}, domain.ErrNoBody
	}
	body := resp.Body
	defer body.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = body.Close()
	})
	defer stop()

	var (
		res Result
		sb  strings.Builder
	)
	dec := NewDecoder(body)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		frame, err := dec.Next()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			if errors.Is(err, io.EOF) {
				res.Text = sb.String()
				return res, nil
			}
			var protocolErr *domain.ProtocolError
			if errors.As(err, &protocolErr) {
				return res, err
			}
			return res, &domain.NetworkError{Err: err}
		}

		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch frame.Kind {
		case FrameTerminator:
			res.Text = sb.String()
			return res, nil
		case FrameError:
			return res, &domain.ServerError{Message: frame.Payload}
		case FrameContent:
			if IsMetadata(frame.Payload) {
				res.SuppressedFrames++
				continue
			}
			res.ContentFrames++
			sb.WriteString(frame.Payload)
			res.Text = sb.String()
			if onProgress != nil {
				onProgress(res.Text)
			}
		}
	}
}
