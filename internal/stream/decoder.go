// Package stream decodes the summarization wire protocol: "data: " lines
// grouped into frames separated by a blank line, closed by a [DONE] frame.
package stream

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"smart-summary/internal/domain"
)

const (
	dataPrefix     = "data: "
	doneSentinel   = "[DONE]"
	errorMarker    = "[ERROR]"
	readBufferSize = 4096
)

var frameSeparator = []byte("\n\n")

// FrameKind tags a decoded frame.
type FrameKind int

const (
	FrameContent FrameKind = iota + 1
	FrameTerminator
	FrameError
)

func (k FrameKind) String() string {
	switch k {
	case FrameContent:
		return "content"
	case FrameTerminator:
		return "terminator"
	case FrameError:
		return "error"
	default:
		return "unknown"
	}
}

// Frame is one protocol frame. Payload holds content text or the error message.
type Frame struct {
	Kind    FrameKind
	Payload string
}

// Decoder turns a byte stream into frames. It is single use.
type Decoder struct {
	r       io.Reader
	buf     []byte
	queue   []Frame
	readBuf []byte
	done    bool
	err     error
}

// NewDecoder returns a decoder reading from r. r may be nil when the caller
// only pushes chunks through Feed.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Feed appends a raw chunk and returns the frames it completed. Bytes after the
// last separator are kept until a later chunk completes them.
func (d *Decoder) Feed(chunk []byte) ([]Frame, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.done {
		return nil, nil
	}
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for !d.done {
		idx := bytes.Index(d.buf, frameSeparator)
		if idx < 0 {
			break
		}
		raw := d.buf[:idx]
		d.buf = d.buf[idx+len(frameSeparator):]

		frame, ok, err := parseFrame(raw)
		if err != nil {
			d.err = err
			return frames, err
		}
		if !ok {
			continue
		}
		frames = append(frames, frame)
		if frame.Kind == FrameTerminator {
			d.done = true
			d.buf = nil
		}
	}
	return frames, nil
}

// Close reports whether the stream ended cleanly. It returns
// domain.ErrIncompleteStream if no terminator frame was seen.
func (d *Decoder) Close() error {
	if d.err != nil {
		return d.err
	}
	if !d.done {
		d.err = domain.ErrIncompleteStream
		return d.err
	}
	return nil
}

// Next returns the next frame read from the underlying reader. After the
// terminator frame it returns io.EOF.
func (d *Decoder) Next() (Frame, error) {
	for {
		if len(d.queue) > 0 {
			frame := d.queue[0]
			d.queue = d.queue[1:]
			return frame, nil
		}
		if d.err != nil {
			return Frame{}, d.err
		}
		if d.done {
			return Frame{}, io.EOF
		}
		if d.r == nil {
			return Frame{}, d.Close()
		}
		if d.readBuf == nil {
			d.readBuf = make([]byte, readBufferSize)
		}

		n, readErr := d.r.Read(d.readBuf)
		if n > 0 {
			// A Feed error is kept in d.err and surfaces after the queued frames.
			frames, _ := d.Feed(d.readBuf[:n])
			d.queue = append(d.queue, frames...)
		}
		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF):
			_ = d.Close()
		case d.err == nil:
			d.err = readErr
		}
	}
}

// parseFrame extracts the payload of one frame. ok is false for frames that
// carry no payload at all.
func parseFrame(raw []byte) (Frame, bool, error) {
	if !utf8.Valid(raw) {
		return Frame{}, false, &domain.ProtocolError{Reason: "frame is not valid UTF-8"}
	}

	var (
		lines   []string
		hasData bool
	)
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		hasData = true
		lines = append(lines, strings.TrimPrefix(line, dataPrefix))
	}
	if !hasData {
		return Frame{}, false, nil
	}

	payload := strings.Join(lines, "\n")
	switch {
	case payload == doneSentinel:
		return Frame{Kind: FrameTerminator}, true, nil
	case strings.HasPrefix(payload, errorMarker):
		return Frame{Kind: FrameError, Payload: errorMessage(payload)}, true, nil
	case payload == "":
		return Frame{}, false, nil
	default:
		return Frame{Kind: FrameContent, Payload: payload}, true, nil
	}
}

func errorMessage(payload string) string {
	msg := strings.TrimPrefix(payload, errorMarker)
	msg = strings.TrimLeft(msg, ":- \t")
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "the summarization service reported an error"
	}
	return msg
}
