package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"smart-summary/internal/domain"
)

// printer renders orchestrator state changes as terminal output. Streaming
// updates print only the newly arrived text.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	op      string
	printed string
}

func newPrinter(out, errOut io.Writer) *printer {
	return &printer{out: out, errOut: errOut}
}

func (p *printer) OnChange(s domain.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch s.Status {
	case domain.StatusStreaming:
		p.follow(s.OperationID, s.Summary)
	case domain.StatusCompleted:
		switch {
		case s.FromCache:
			fmt.Fprintln(p.out, s.Summary)
			fmt.Fprintln(p.out, "(cached)")
			p.op = ""
		case s.OperationID == "":
			// cache notice expired; the summary is already on screen
		default:
			p.follow(s.OperationID, s.Summary)
			fmt.Fprintln(p.out)
			p.op, p.printed = "", ""
		}
	case domain.StatusFailed:
		if p.printed != "" {
			fmt.Fprintln(p.out)
		}
		fmt.Fprintln(p.errOut, "error:", s.Error)
		p.op, p.printed = "", ""
	}
}

// follow prints the part of summary not yet written for operation op.
func (p *printer) follow(op, summary string) {
	if op != p.op {
		if p.printed != "" {
			fmt.Fprintln(p.out)
		}
		p.op, p.printed = op, ""
	}
	if !strings.HasPrefix(summary, p.printed) {
		fmt.Fprintln(p.out)
		p.printed = ""
	}
	fmt.Fprint(p.out, summary[len(p.printed):])
	p.printed = summary
}
