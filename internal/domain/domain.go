package domain

import "strings"

const (
	// DefaultMaxLength mirrors the backend default summary length in words.
	DefaultMaxLength = 200
	// MaxMaxLength is the largest max_length the backend accepts.
	MaxMaxLength = 1000
)

// Request is a single summarization request as sent over the wire.
// A Request is never mutated after it is issued.
type Request struct {
	Text      string `json:"text" validate:"required"`
	MaxLength int    `json:"max_length" validate:"gt=0,lte=1000"`
	Provider  string `json:"provider,omitempty" validate:"omitempty,max=64"`
	APIKey    string `json:"api_key,omitempty"`
}

// Blank reports whether the request text has no visible characters.
func (r Request) Blank() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Status is the visible phase of a summarization session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusDebounced  Status = "debounced"
	StatusRequesting Status = "requesting"
	StatusStreaming  Status = "streaming"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Pending reports whether work is scheduled or in flight.
func (s Status) Pending() bool {
	return s == StatusDebounced || s == StatusRequesting || s == StatusStreaming
}

// State is the snapshot handed to the UI layer.
type State struct {
	Status  Status
	Input   string
	Summary string
	Error   string
	// FromCache is set while the "served from cache" notice is shown.
	FromCache   bool
	OperationID string
}

// OutcomeKind enumerates the terminal outcomes of an operation.
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeCompleted
	OutcomeFailed
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// Outcome is the terminal result of one operation.
type Outcome struct {
	Kind   OutcomeKind
	Text   string
	Reason string
}

// Terminal reports whether the outcome is final.
func (o Outcome) Terminal() bool {
	return o.Kind != OutcomePending
}
