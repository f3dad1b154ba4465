package orchestrator

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"smart-summary/internal/cache"
	"smart-summary/internal/client"
	"smart-summary/internal/domain"
	"smart-summary/internal/metrics"
)

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Fire runs every live timer scheduled with duration d and returns how many ran.
func (c *fakeClock) Fire(d time.Duration) int {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if t.d == d && !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

// Live counts timers with duration d that have neither fired nor been stopped.
func (c *fakeClock) Live(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if t.d == d && !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// recorder collects OnChange notifications.
type recorder struct {
	mu     sync.Mutex
	states []domain.State
}

func (r *recorder) OnChange(s domain.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *recorder) Statuses() []domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Status, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.Status)
	}
	return out
}

func (r *recorder) Summaries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, s := range r.states {
		if s.Status == domain.StatusStreaming && s.Summary != "" {
			out = append(out, s.Summary)
		}
	}
	return out
}

const (
	testWindow = 500 * time.Millisecond
	testNotice = 3 * time.Second
)

type harness struct {
	o       *Orchestrator
	rec     *recorder
	clock   *fakeClock
	cache   *cache.FIFO
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, transport client.Transport) *harness {
	t.Helper()

	h := &harness{
		rec:     &recorder{},
		clock:   &fakeClock{},
		cache:   cache.NewFIFO(cache.DefaultCapacity),
		metrics: metrics.New(),
	}
	h.o = New(transport, h.cache, Options{
		MaxLength:           120,
		DebounceWindow:      testWindow,
		CacheNoticeDuration: testNotice,
		OnChange:            h.rec.OnChange,
		AfterFunc:           h.clock.AfterFunc,
		Metrics:             h.metrics,
	})
	t.Cleanup(h.o.Close)

	return h
}

func sseResponse(payloads ...string) *http.Response {
	var sb strings.Builder
	for _, p := range payloads {
		sb.WriteString("data: " + p + "\n\n")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(sb.String())),
	}
}

func pipeResponse() (*http.Response, *io.PipeWriter) {
	pr, pw := io.Pipe()
	return &http.Response{StatusCode: http.StatusOK, Body: pr}, pw
}

func textIs(text string) func(domain.Request) bool {
	return func(r domain.Request) bool { return r.Text == text }
}
