package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Encoder writes frames in the wire format understood by Decoder.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
	held    string
}

// NewEncoder wraps w. When w is an http.Flusher every frame is flushed as soon
// as it is written.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	return enc
}

// Content writes a content frame. Multi-line text is split across several
// data lines, and blank lines inside text survive because each line keeps its
// own prefix.
//
// A whitespace-only delta would decode as a metadata frame, so it is held and
// written as the prefix of the next non-blank delta.
func (e *Encoder) Content(text string) error {
	if strings.TrimSpace(text) == "" {
		e.held += text
		return nil
	}
	text = e.held + text
	e.held = ""
	return e.write(text)
}

// Held returns whitespace received by Content that has not been written yet.
// It is dropped when the stream ends.
func (e *Encoder) Held() string {
	return e.held
}

// Metadata writes a structured progress frame.
func (e *Encoder) Metadata(fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return e.write(string(body))
}

// Error writes an [ERROR] frame carrying msg.
func (e *Encoder) Error(msg string) error {
	msg = strings.ReplaceAll(msg, "\n", " ")
	return e.write(errorMarker + " " + msg)
}

// Done writes the terminator frame.
func (e *Encoder) Done() error {
	return e.write(doneSentinel)
}

func (e *Encoder) write(payload string) error {
	bw := bufio.NewWriter(e.w)
	for _, line := range strings.Split(payload, "\n") {
		if _, err := bw.WriteString(dataPrefix + line + "\n"); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
