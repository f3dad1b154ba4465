package llm

import (
	"context"
	"strings"
	"time"

	"smart-summary/internal/chunker"
)

// Stub is an extractive provider that needs no network: the summary is the
// first maxLength words of the input. It is the default for local runs.
type Stub struct {
	// Delay is the pause between streamed words.
	Delay time.Duration
}

func (s Stub) Stream(ctx context.Context, text string, maxLength int, onDelta DeltaFunc) error {
	for _, word := range chunker.StreamWords(chunker.Truncate(text, maxLength)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onDelta(word); err != nil {
			return err
		}
		if s.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.Delay):
			}
		}
	}
	return nil
}

func (s Stub) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(chunker.Truncate(text, maxLength)), nil
}
