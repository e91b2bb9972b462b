package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/voxhome/internal/domain/device"
	"github.com/kailas-cloud/voxhome/internal/metrics"
)

// Job is one queued control intent.
type Job struct {
	Room   string
	TurnOn bool
}

// PoolConfig sizes the worker pool.
type PoolConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Pool runs jobs on a fixed set of workers reading a buffered queue. Each job
// gets its own timeout, detached from the submitting request.
type Pool struct {
	queue   chan Job
	handle  func(context.Context, Job)
	timeout time.Duration
	group   errgroup.Group
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool starts cfg.Workers workers. Zero values fall back to 4 workers,
// a queue of 64 and a 10s job timeout.
func NewPool(cfg PoolConfig, handle func(context.Context, Job), logger *zap.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	p := &Pool{
		queue:   make(chan Job, cfg.QueueSize),
		handle:  handle,
		timeout: cfg.Timeout,
		logger:  logger,
	}
	for range cfg.Workers {
		p.group.Go(p.work)
	}
	return p
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop(job, "closed")
		return false
	}
	select {
	case p.queue <- job:
		metrics.DispatchJobsTotal.WithLabelValues("queued").Inc()
		metrics.DispatchQueueDepth.Inc()
		return true
	default:
		p.drop(job, "queue full")
		return false
	}
}

// Close stops accepting jobs, drains the queue and waits for the workers.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	return p.group.Wait() //nolint:wrapcheck // workers never fail
}

func (p *Pool) work() error {
	for job := range p.queue {
		metrics.DispatchQueueDepth.Dec()
		p.run(job)
	}
	return nil
}

func (p *Pool) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Dispatch job panicked", zap.Any("panic", r), zap.String("room", job.Room))
		}
	}()
	p.handle(ctx, job)
	metrics.DispatchJobsTotal.WithLabelValues("done").Inc()
}

func (p *Pool) drop(job Job, reason string) {
	metrics.DispatchJobsTotal.WithLabelValues("dropped").Inc()
	p.logger.Warn("Dispatch job dropped",
		zap.String("reason", reason),
		zap.String("room", job.Room),
		zap.String("action", device.Action(job.TurnOn)),
	)
}
