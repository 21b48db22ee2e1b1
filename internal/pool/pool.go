// Package pool operates a bounded set of reusable background workers
// executing render jobs over a request/response protocol.
//
// Every pool-level failure (worker creation, dispatch, timeout) is
// absorbed by falling back to a synchronous render in the caller's
// goroutine: callers never observe concurrency infrastructure failure
// as such. A worker that errors or times out is terminated and evicted
// so its state can never leak into a later job.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gogpu/vraster/render"
)

// ErrJobTimeout reports that a worker did not respond within the job
// timeout. It triggers the synchronous fallback and is matched with
// errors.Is.
var ErrJobTimeout = errors.New("pool: job timeout")

// Default pool configuration.
const (
	DefaultMaxWorkers    = 2
	DefaultJobTimeout    = 30 * time.Second
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// ErrorCode classifies worker protocol failures.
type ErrorCode string

const (
	CodeTimeout    ErrorCode = "TIMEOUT"
	CodeProcessing ErrorCode = "PROCESSING_ERROR"
	CodeCapability ErrorCode = "CAPABILITY_ERROR"
)

// Error is a worker protocol failure with a stable machine-readable
// code.
type Error struct {
	Code      ErrorCode
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pool: %s (request %s)", e.Code, e.RequestID)
	}
	return fmt.Sprintf("pool: %s (request %s): %v", e.Code, e.RequestID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Runner executes one render job. Workers run it in their own
// goroutine; the fallback path runs it in the caller's.
type Runner func(ctx context.Context, job render.Job) (render.Result, error)

// Config tunes the pool. Zero values select the defaults.
type Config struct {
	// MaxWorkers is the soft cap on live workers. When all workers are
	// busy the pool creates one more rather than block, transiently
	// exceeding the cap.
	MaxWorkers int

	// JobTimeout bounds one worker round trip. A timed-out worker is
	// terminated, not reused.
	JobTimeout time.Duration

	// IdleTimeout is how long an idle worker survives between sweeps.
	IdleTimeout time.Duration

	// SweepInterval is how often idle workers are collected.
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// workerState is the lifecycle state of a worker handle.
type workerState int

const (
	stateIdle workerState = iota
	stateProcessing
	stateTerminated
)

// envelope is the host-to-worker message.
type envelope struct {
	requestID string
	ctx       context.Context
	job       render.Job
	reply     chan response
}

// response is the worker-to-host message, correlated by requestID.
type response struct {
	requestID string
	result    render.Result
	err       error
	code      ErrorCode
}

// handle is one reusable background worker. state and lastUsed are
// guarded by the pool mutex; the jobs channel is owned by the worker
// goroutine.
type handle struct {
	id       string
	state    workerState
	lastUsed time.Time
	jobs     chan envelope
	quit     chan struct{}
}

// Pool is a bounded set of reusable background workers.
type Pool struct {
	mu      sync.Mutex
	cfg     Config
	run     Runner
	workers map[string]*handle
	nextID  int
	closed  bool

	logger *log.Logger
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a pool executing jobs with the given runner. A nil logger
// selects the standard logger. The idle sweeper starts immediately.
func New(run Runner, cfg Config, logger *log.Logger) *Pool {
	if logger == nil {
		logger = log.Default()
	}
	p := &Pool{
		cfg:     cfg.withDefaults(),
		run:     run,
		workers: make(map[string]*handle),
		logger:  logger,
		done:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.sweeper()
	return p
}

// Dispatch runs the job on a pooled worker, falling back to a
// synchronous render in the caller's goroutine on any pool failure.
func (p *Pool) Dispatch(ctx context.Context, job render.Job) (render.Result, error) {
	res, err := p.runOnWorker(ctx, job)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return render.Result{}, err
	}
	p.logger.Printf("pool: worker dispatch failed, falling back to synchronous render: %v", err)
	return p.run(ctx, job)
}

// runOnWorker claims a worker, sends the job, and awaits the correlated
// response within the job timeout.
func (p *Pool) runOnWorker(ctx context.Context, job render.Job) (render.Result, error) {
	h, err := p.claim()
	if err != nil {
		return render.Result{}, &Error{Code: CodeCapability, RequestID: job.RequestID, Err: err}
	}

	env := envelope{
		requestID: job.RequestID,
		ctx:       ctx,
		job:       job,
		reply:     make(chan response, 1),
	}

	select {
	case h.jobs <- env:
	default:
		// A claimed worker always has an empty job channel; a full one
		// means the handle is wedged.
		p.terminate(h)
		return render.Result{}, &Error{Code: CodeCapability, RequestID: job.RequestID,
			Err: fmt.Errorf("worker %s not accepting jobs", h.id)}
	}

	timer := time.NewTimer(p.cfg.JobTimeout)
	defer timer.Stop()

	select {
	case resp := <-env.reply:
		if resp.err != nil {
			p.terminate(h)
			return render.Result{}, &Error{Code: resp.code, RequestID: resp.requestID, Err: resp.err}
		}
		p.release(h)
		return resp.result, nil

	case <-timer.C:
		// Timeout policy: terminate the handle. The draw may still be
		// running inside it, and returning it to idle could hand a
		// mid-job worker to the next caller.
		p.terminate(h)
		return render.Result{}, &Error{Code: CodeTimeout, RequestID: job.RequestID,
			Err: fmt.Errorf("%w: no response within %v", ErrJobTimeout, p.cfg.JobTimeout)}

	case <-ctx.Done():
		p.terminate(h)
		return render.Result{}, &Error{Code: CodeTimeout, RequestID: job.RequestID, Err: ctx.Err()}
	}
}

// claim returns an exclusive worker handle in the processing state,
// creating one if no idle handle exists.
func (p *Pool) claim() (*handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("pool is closed")
	}

	for _, h := range p.workers {
		if h.state == stateIdle {
			h.state = stateProcessing
			return h, nil
		}
	}

	// All live workers are busy. Creation proceeds even at the cap: a
	// transient overshoot beats blocking the caller, and release sheds
	// the surplus as soon as a job completes.
	h := p.newWorkerLocked()
	h.state = stateProcessing
	return h, nil
}

// newWorkerLocked creates and starts a worker handle. Caller must hold
// p.mu.
func (p *Pool) newWorkerLocked() *handle {
	p.nextID++
	h := &handle{
		id:       fmt.Sprintf("worker-%d", p.nextID),
		state:    stateIdle,
		lastUsed: time.Now(),
		jobs:     make(chan envelope, 1),
		quit:     make(chan struct{}),
	}
	p.workers[h.id] = h
	go p.workerLoop(h)
	return h
}

// workerLoop is the worker goroutine: receive a job, run it, reply.
// The reply channel is buffered so a send never blocks even when the
// host gave up on the job.
func (p *Pool) workerLoop(h *handle) {
	for {
		select {
		case <-h.quit:
			return
		case env := <-h.jobs:
			result, err := p.run(env.ctx, env.job)
			resp := response{requestID: env.requestID, result: result}
			if err != nil {
				resp = response{requestID: env.requestID, err: err, code: CodeProcessing}
			}
			env.reply <- resp
		}
	}
}

// release returns a worker to the idle state after a successful job.
func (p *Pool) release(h *handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.state == stateTerminated {
		return
	}
	if len(p.workers) > p.cfg.MaxWorkers {
		p.terminateLocked(h)
		return
	}
	h.state = stateIdle
	h.lastUsed = time.Now()
}

// terminate stops a worker and removes it from the pool.
func (p *Pool) terminate(h *handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminateLocked(h)
}

func (p *Pool) terminateLocked(h *handle) {
	if h.state == stateTerminated {
		return
	}
	h.state = stateTerminated
	close(h.quit)
	delete(p.workers, h.id)
}

// sweeper periodically terminates workers idle longer than the idle
// timeout.
func (p *Pool) sweeper() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.sweep(time.Now())
		}
	}
}

// sweep terminates idle workers unused since before the idle cutoff.
func (p *Pool) sweep(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range p.workers {
		if h.state == stateIdle && now.Sub(h.lastUsed) > p.cfg.IdleTimeout {
			p.logger.Printf("pool: sweeping idle %s (unused %v)", h.id, now.Sub(h.lastUsed).Round(time.Second))
			p.terminateLocked(h)
		}
	}
}

// WorkerCount returns the number of live worker handles.
func (p *Pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// IdleCount returns the number of idle worker handles.
func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, h := range p.workers {
		if h.state == stateIdle {
			n++
		}
	}
	return n
}

// Close terminates all workers and stops the sweeper. The pool rejects
// further dispatches; Dispatch still completes them via the synchronous
// fallback.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, h := range p.workers {
		p.terminateLocked(h)
	}
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()
}
