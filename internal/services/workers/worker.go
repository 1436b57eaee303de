package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/killallgit/spectrogram-api/internal/services/pipeline"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ReportGenerator runs one pipeline invocation
type ReportGenerator interface {
	GenerateReport(ctx context.Context, shareURL string) (*pipeline.Result, error)
}

// CompletionHook is called after every processed job, successful or not.
// ctx is the submitter's context and may already be cancelled.
type CompletionHook func(ctx context.Context, requestID, shareURL string, result *pipeline.Result, err error, elapsed time.Duration)

// job is one queued invocation
type job struct {
	ctx       context.Context
	requestID string
	shareURL  string
	done      chan outcome
}

type outcome struct {
	result *pipeline.Result
	err    error
}

// Worker consumes jobs from the pool's queue
type Worker struct {
	id        string
	generator ReportGenerator
	queue     <-chan *job
	timeout   time.Duration
	hooks     []CompletionHook
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// newWorker creates a worker reading from queue
func newWorker(id string, generator ReportGenerator, queue <-chan *job, timeout time.Duration, hooks []CompletionHook) *Worker {
	return &Worker{
		id:        id,
		generator: generator,
		queue:     queue,
		timeout:   timeout,
		hooks:     hooks,
		stopChan:  make(chan struct{}),
	}
}

// Start starts the worker in a goroutine
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker after its current job
func (w *Worker) Stop() {
	w.halt()
	w.wg.Wait()
}

// halt signals the worker to stop without waiting for it
func (w *Worker) halt() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// halted reports whether the worker should take no more jobs
func (w *Worker) halted(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

// run is the main worker loop
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	logger := logrus.WithField("worker", w.id)
	logger.Debug("Worker starting")
	defer logger.Debug("Worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case j := <-w.queue:
			// Both cases may be ready at once; a stopping worker does not start new work
			if w.halted(ctx) {
				j.done <- outcome{err: errShuttingDown()}
				return
			}
			w.process(j)
		}
	}
}

// process runs one job under the job timeout and delivers its outcome
func (w *Worker) process(j *job) {
	start := time.Now()

	var out outcome
	if err := j.ctx.Err(); err != nil {
		// Caller gave up while the job was queued
		out.err = apperrors.Wrap(err, apperrors.ErrCodeAPITimeout, "request abandoned before processing")
	} else {
		ctx := j.ctx
		cancel := func() {}
		if w.timeout > 0 {
			ctx, cancel = context.WithTimeout(j.ctx, w.timeout)
		}

		out.result, out.err = w.generator.GenerateReport(ctx, j.shareURL)
		if out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out.err = apperrors.TimeoutError("spectrogram generation", w.timeout.String()).WithCause(out.err)
		}
		cancel()
	}

	elapsed := time.Since(start)
	for _, hook := range w.hooks {
		hook(j.ctx, j.requestID, j.shareURL, out.result, out.err, elapsed)
	}

	logrus.WithFields(logrus.Fields{
		"worker":     w.id,
		"request_id": j.requestID,
		"elapsed":    elapsed.String(),
		"ok":         out.err == nil,
	}).Debug("Worker finished job")

	j.done <- out
}

func errShuttingDown() error {
	return apperrors.New(apperrors.ErrCodeResourceExhaust, "service is shutting down")
}

// Options configures a WorkerPool
type Options struct {
	Workers      int           // Concurrent invocations
	MaxQueueSize int           // Jobs waiting for a worker
	JobTimeout   time.Duration // Per-invocation limit, 0 for none
}

// WorkerPool bounds concurrent pipeline invocations. Submissions beyond
// the queue capacity are rejected immediately rather than piling up.
type WorkerPool struct {
	workers []*Worker
	queue   chan *job
	mu      sync.RWMutex
	started bool
	cancel  context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(generator ReportGenerator, opts Options, hooks ...CompletionHook) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxQueueSize < 0 {
		opts.MaxQueueSize = 0
	}

	pool := &WorkerPool{
		queue:   make(chan *job, opts.MaxQueueSize),
		workers: make([]*Worker, opts.Workers),
	}

	for i := 0; i < opts.Workers; i++ {
		workerID := fmt.Sprintf("worker-%d", i+1)
		pool.workers[i] = newWorker(workerID, generator, pool.queue, opts.JobTimeout, hooks)
	}

	return pool
}

// Start starts all workers. Cancelling ctx stops the pool and fails
// queued jobs at once; jobs already running finish under their own context.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}

	logrus.WithField("workers", len(p.workers)).Info("Starting worker pool")

	runCtx, cancel := context.WithCancel(ctx)
	for _, worker := range p.workers {
		worker.Start(runCtx)
	}

	p.started = true
	p.cancel = cancel

	go func() {
		<-runCtx.Done()
		p.Stop()
	}()
	return nil
}

// Stop stops all workers and fails any jobs still queued
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	logrus.Info("Stopping worker pool")

	p.cancel()
	for _, worker := range p.workers {
		worker.halt()
	}

	// Submit is locked out, so the queue only shrinks from here
	draining := true
	for draining {
		select {
		case j := <-p.queue:
			j.done <- outcome{err: errShuttingDown()}
		default:
			draining = false
		}
	}

	for _, worker := range p.workers {
		worker.wg.Wait()
	}
	p.started = false
}

// Submit queues an invocation and waits for its outcome. A full queue
// fails fast with RESOURCE_EXHAUSTED.
func (p *WorkerPool) Submit(ctx context.Context, requestID, shareURL string) (*pipeline.Result, error) {
	j := &job{
		ctx:       ctx,
		requestID: requestID,
		shareURL:  shareURL,
		done:      make(chan outcome, 1),
	}

	p.mu.RLock()
	if !p.started {
		p.mu.RUnlock()
		return nil, apperrors.New(apperrors.ErrCodeResourceExhaust, "worker pool is not running")
	}
	select {
	case p.queue <- j:
	default:
		p.mu.RUnlock()
		return nil, apperrors.ResourceExhausted("spectrogram queue")
	}
	p.mu.RUnlock()

	select {
	case out := <-j.done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeAPITimeout, "request cancelled while waiting for a worker")
	}
}

// QueueDepth returns the number of jobs waiting for a worker
func (p *WorkerPool) QueueDepth() int {
	return len(p.queue)
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return len(p.workers)
}
