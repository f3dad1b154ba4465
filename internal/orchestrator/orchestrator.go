// Package orchestrator coordinates summarization requests for one session:
// it checks the result cache, debounces paste-triggered submissions, keeps a
// single current operation and drops updates from superseded ones.
package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"smart-summary/internal/cache"
	"smart-summary/internal/client"
	"smart-summary/internal/domain"
	"smart-summary/internal/metrics"
	"smart-summary/internal/stream"
)

const (
	DefaultDebounceWindow      = 500 * time.Millisecond
	DefaultCacheNoticeDuration = 3 * time.Second
)

// ErrClosed is returned by submissions after Close.
var ErrClosed = errors.New("orchestrator closed")

// Trigger names what started a submission.
type Trigger string

const (
	TriggerImmediate Trigger = "immediate"
	TriggerDebounced Trigger = "debounced"
	TriggerRetry     Trigger = "retry"
)

// Timer is the part of *time.Timer the orchestrator uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// Options configures an Orchestrator. Zero values select defaults.
type Options struct {
	MaxLength           int
	Provider            string
	APIKey              string
	DebounceWindow      time.Duration
	CacheNoticeDuration time.Duration

	// OnChange receives every state change in order. It runs on the goroutine
	// that caused the change and must not call back into the Orchestrator.
	OnChange func(domain.State)

	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	AfterFunc AfterFunc
}

// Orchestrator is the session object handed to the UI layer. It owns the
// result cache writes and the current operation; nothing else mutates them.
type Orchestrator struct {
	transport client.Transport
	cache     cache.ResultCache
	opts      Options
	log       *slog.Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	emitMu  sync.Mutex
	state   domain.State
	current *operation
	closed  bool

	debounce    Timer
	debounceSeq uint64
	notice      Timer
	noticeSeq   uint64

	// settled is open while work is pending and closed once the session
	// becomes quiescent; see Wait.
	settled chan struct{}

	wg sync.WaitGroup
}

type operation struct {
	id        string
	trigger   Trigger
	req       domain.Request
	key       string
	input     string
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled bool
	text      string
	outcome   domain.Outcome
	started   time.Time
}

// New creates an Orchestrator over transport and resultCache.
func New(transport client.Transport, resultCache cache.ResultCache, opts Options) *Orchestrator {
	if opts.MaxLength == 0 {
		opts.MaxLength = domain.DefaultMaxLength
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.CacheNoticeDuration <= 0 {
		opts.CacheNoticeDuration = DefaultCacheNoticeDuration
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if resultCache == nil {
		resultCache = cache.NewFIFO(cache.DefaultCapacity)
	}

	return &Orchestrator{
		transport: transport,
		cache:     resultCache,
		opts:      opts,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		state:     domain.State{Status: domain.StatusIdle},
	}
}

// State returns a snapshot of the visible state.
func (o *Orchestrator) State() domain.State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// SubmitImmediate summarizes text now, or serves it from the cache.
func (o *Orchestrator) SubmitImmediate(text string) error {
	return o.submit(text, TriggerImmediate)
}

// RetryBypassingCache drops any cached summary for text and fetches a fresh one.
func (o *Orchestrator) RetryBypassingCache(text string) error {
	return o.submit(text, TriggerRetry)
}

// SubmitDebounced schedules a summarization after the debounce window. Every
// call within the window restarts it, so only the last text of a burst is sent.
func (o *Orchestrator) SubmitDebounced(text string) error {
	req, key, err := o.prepare(text)
	if err != nil {
		return err
	}
	o.metrics.RecordSubmission(string(TriggerDebounced))

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}

	if summary, ok := o.cache.Get(key); ok {
		o.metrics.RecordCacheLookup(true)
		o.serveFromCacheLocked(text, summary)
		o.emitLocked()
		return nil
	}

	o.cancelCurrentLocked()
	o.debounceSeq++
	seq := o.debounceSeq
	o.state = domain.State{Status: domain.StatusDebounced, Input: text}
	o.debounce = o.opts.AfterFunc(o.opts.DebounceWindow, func() {
		o.fireDebounce(seq, req, key, text)
	})
	o.log.Debug("summarization debounced",
		"window", o.opts.DebounceWindow.String(),
		"chars", len(text))
	o.emitLocked()

	return nil
}

// CancelCurrent aborts the current operation and any pending debounce. It is
// silent: no error state is produced.
func (o *Orchestrator) CancelCurrent() {
	o.mu.Lock()
	if !o.cancelCurrentLocked() {
		o.mu.Unlock()
		return
	}
	o.state = domain.State{Status: domain.StatusIdle, Input: o.state.Input}
	o.emitLocked()
}

// ResetAll cancels work, clears the visible state and empties the cache.
func (o *Orchestrator) ResetAll() {
	o.mu.Lock()
	o.cancelCurrentLocked()
	o.cache.Clear()
	o.current = nil
	o.state = domain.State{Status: domain.StatusIdle}
	o.emitLocked()
}

// Close tears the session down, as when the UI unmounts. Pending work is
// cancelled, later submissions fail with ErrClosed, and Close waits for
// in-flight goroutines to return.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.cancelCurrentLocked()
	o.state.Status = domain.StatusIdle
	o.syncSettledLocked()
	o.mu.Unlock()

	o.wg.Wait()
}

// Wait blocks until nothing is debounced or in flight.
func (o *Orchestrator) Wait(ctx context.Context) error {
	for {
		o.mu.Lock()
		if !o.state.Status.Pending() {
			o.mu.Unlock()
			return nil
		}
		settled := o.settled
		o.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (o *Orchestrator) prepare(text string) (domain.Request, string, error) {
	req := domain.Request{
		Text:      text,
		MaxLength: o.opts.MaxLength,
		Provider:  o.opts.Provider,
		APIKey:    o.opts.APIKey,
	}
	if err := domain.Validate(req); err != nil {
		return domain.Request{}, "", err
	}
	return req, cache.NormalizeKey(text), nil
}

func (o *Orchestrator) submit(text string, trigger Trigger) error {
	req, key, err := o.prepare(text)
	if err != nil {
		return err
	}
	o.metrics.RecordSubmission(string(trigger))

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}

	if trigger == TriggerRetry {
		o.cache.Delete(key)
	} else if summary, ok := o.cache.Get(key); ok {
		o.metrics.RecordCacheLookup(true)
		o.serveFromCacheLocked(text, summary)
		o.emitLocked()
		return nil
	} else {
		o.metrics.RecordCacheLookup(false)
	}

	o.startLocked(req, key, text, trigger)
	o.emitLocked()

	return nil
}

func (o *Orchestrator) fireDebounce(seq uint64, req domain.Request, key, text string) {
	o.mu.Lock()
	if o.closed || seq != o.debounceSeq || o.debounce == nil {
		o.mu.Unlock()
		return
	}
	o.debounce = nil

	// A result for the same text may have landed while the timer was pending.
	if summary, ok := o.cache.Get(key); ok {
		o.metrics.RecordCacheLookup(true)
		o.serveFromCacheLocked(text, summary)
		o.emitLocked()
		return
	}
	o.metrics.RecordCacheLookup(false)

	o.startLocked(req, key, text, TriggerDebounced)
	o.emitLocked()
}

func (o *Orchestrator) serveFromCacheLocked(text, summary string) {
	o.cancelCurrentLocked()
	o.current = nil
	o.state = domain.State{
		Status:    domain.StatusCompleted,
		Input:     text,
		Summary:   summary,
		FromCache: true,
	}

	o.noticeSeq++
	seq := o.noticeSeq
	o.notice = o.opts.AfterFunc(o.opts.CacheNoticeDuration, func() {
		o.mu.Lock()
		if seq != o.noticeSeq || !o.state.FromCache {
			o.mu.Unlock()
			return
		}
		o.notice = nil
		o.state.FromCache = false
		o.emitLocked()
	})
	o.log.Debug("summary served from cache", "chars", len(text))
}

func (o *Orchestrator) startLocked(req domain.Request, key, text string, trigger Trigger) {
	o.cancelCurrentLocked()

	ctx, cancel := context.WithCancel(context.Background())
	op := &operation{
		id:      uuid.NewString(),
		trigger: trigger,
		req:     req,
		key:     key,
		input:   text,
		ctx:     ctx,
		cancel:  cancel,
		started: time.Now(),
	}
	o.current = op
	o.state = domain.State{
		Status:      domain.StatusRequesting,
		Input:       text,
		OperationID: op.id,
	}
	o.log.Debug("operation started",
		"operation_id", op.id,
		"trigger", string(trigger),
		"chars", len(text))

	o.wg.Add(1)
	go o.run(op)
}

// cancelCurrentLocked stops the debounce timer, the cache notice and the
// current operation. It reports whether anything was pending.
func (o *Orchestrator) cancelCurrentLocked() bool {
	pending := false

	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
		pending = true
	}
	o.debounceSeq++

	if o.notice != nil {
		o.notice.Stop()
		o.notice = nil
	}
	o.noticeSeq++

	if op := o.current; op != nil && !op.outcome.Terminal() {
		op.cancelled = true
		op.outcome = domain.Outcome{Kind: domain.OutcomeCancelled}
		op.cancel()
		o.metrics.RecordOutcome(domain.OutcomeCancelled.String())
		o.log.Debug("operation cancelled", "operation_id", op.id)
		pending = true
	}

	return pending
}

func (o *Orchestrator) run(op *operation) {
	defer o.wg.Done()
	defer op.cancel()

	resp, err := o.transport.Open(op.ctx, op.req)
	if err != nil {
		o.finish(op, "", err)
		return
	}

	if resp != nil && resp.Body != nil && resp.Body != http.NoBody {
		resp.Body = &firstByteBody{ReadCloser: resp.Body, onFirst: func() {
			o.update(op, func(s *domain.State) { s.Status = domain.StatusStreaming })
		}}
	}

	res, err := stream.Accumulate(op.ctx, resp, func(text string) {
		o.update(op, func(s *domain.State) {
			s.Status = domain.StatusStreaming
			s.Summary = text
		})
	})
	o.metrics.RecordFrames(res.ContentFrames, res.SuppressedFrames)
	o.finish(op, res.Text, err)
}

// firstByteBody calls onFirst once, when the first bytes of the body arrive.
type firstByteBody struct {
	io.ReadCloser
	once    sync.Once
	onFirst func()
}

func (b *firstByteBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.once.Do(b.onFirst)
	}
	return n, err
}

// update applies fn if op is still the live current operation. It reports
// whether the update was applied.
func (o *Orchestrator) update(op *operation, fn func(*domain.State)) bool {
	o.mu.Lock()
	if !o.liveLocked(op) {
		o.mu.Unlock()
		return false
	}
	fn(&o.state)
	op.text = o.state.Summary
	o.emitLocked()
	return true
}

func (o *Orchestrator) liveLocked(op *operation) bool {
	return o.current == op && !op.cancelled && !op.outcome.Terminal() && !o.closed
}

func (o *Orchestrator) finish(op *operation, text string, err error) {
	o.mu.Lock()
	if !o.liveLocked(op) {
		o.mu.Unlock()
		o.log.Debug("dropping result of superseded operation", "operation_id", op.id)
		return
	}

	if err != nil && domain.IsCancelled(err) {
		op.cancelled = true
		op.outcome = domain.Outcome{Kind: domain.OutcomeCancelled}
		o.metrics.RecordOutcome(domain.OutcomeCancelled.String())
		o.state = domain.State{Status: domain.StatusIdle, Input: op.input}
		o.emitLocked()
		return
	}

	elapsed := time.Since(op.started)
	if err != nil {
		reason := domain.Reason(err)
		op.outcome = domain.Outcome{Kind: domain.OutcomeFailed, Reason: reason}
		o.state = domain.State{
			Status:      domain.StatusFailed,
			Input:       op.input,
			Error:       reason,
			OperationID: op.id,
		}
		o.metrics.RecordOutcome(domain.OutcomeFailed.String())
		o.log.Warn("summarization failed",
			"operation_id", op.id,
			"trigger", string(op.trigger),
			"err", err,
			"duration_ms", elapsed.Milliseconds())
		o.emitLocked()
		return
	}

	op.text = text
	op.outcome = domain.Outcome{Kind: domain.OutcomeCompleted, Text: text}
	if strings.TrimSpace(text) != "" {
		o.cache.Put(op.key, text)
	}
	o.state = domain.State{
		Status:      domain.StatusCompleted,
		Input:       op.input,
		Summary:     text,
		OperationID: op.id,
	}
	o.metrics.RecordOutcome(domain.OutcomeCompleted.String())
	o.log.Info("summarization completed",
		"operation_id", op.id,
		"trigger", string(op.trigger),
		"summary_chars", len(text),
		"duration_ms", elapsed.Milliseconds())
	o.emitLocked()
}

// emitLocked delivers the current state to OnChange and releases o.mu.
// emitMu is taken before o.mu is released so listeners observe changes in
// the order they were made.
func (o *Orchestrator) emitLocked() {
	o.syncSettledLocked()
	snapshot := o.state
	listener := o.opts.OnChange

	o.emitMu.Lock()
	o.mu.Unlock()
	defer o.emitMu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
}

func (o *Orchestrator) syncSettledLocked() {
	pending := o.state.Status.Pending()
	if pending && o.settled == nil {
		o.settled = make(chan struct{})
	}
	if !pending && o.settled != nil {
		close(o.settled)
		o.settled = nil
	}
}
