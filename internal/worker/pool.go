package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Task is one unit of background work. Run receives the 1-based attempt
// number so handlers can record attempt counters.
type Task struct {
	Name string
	Run  func(ctx context.Context, attempt int) error
}

// RetryPolicy bounds retries for a task. A nil Backoff uses exponential
// doubling starting at one minute. Returning backoff.Permanent(err) from Run
// stops retrying immediately.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	// OnGiveUp runs once after the final failed attempt (or on a permanent
	// error), with the last error.
	OnGiveUp func(err error)
}

// Queue accepts tasks for asynchronous execution. The pipeline is agnostic to
// whether execution is in-process, threaded, or distributed.
type Queue interface {
	Submit(task Task, policy RetryPolicy)
}

// Pool is an in-process Queue backed by a fixed set of worker goroutines.
type Pool struct {
	logger *slog.Logger
	tasks  chan queuedTask
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	// timer hooks retry scheduling; tests replace it to avoid real sleeps.
	schedule func(d time.Duration, f func())
}

type queuedTask struct {
	task    Task
	policy  RetryPolicy
	attempt int
}

// NewPool starts size workers consuming the queue.
func NewPool(logger *slog.Logger, size int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger: logger,
		tasks:  make(chan queuedTask, 1024),
		ctx:    ctx,
		cancel: cancel,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

// Submit enqueues a task for execution.
func (p *Pool) Submit(task Task, policy RetryPolicy) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	p.enqueue(queuedTask{task: task, policy: policy, attempt: 1})
}

// Shutdown stops accepting work and waits for in-flight tasks.
func (p *Pool) Shutdown() {
	p.cancel()
	close(p.tasks)
	p.wg.Wait()
}

func (p *Pool) enqueue(qt queuedTask) {
	select {
	case <-p.ctx.Done():
	case p.tasks <- qt:
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for qt := range p.tasks {
		p.run(qt)
	}
}

func (p *Pool) run(qt queuedTask) {
	err := qt.task.Run(p.ctx, qt.attempt)
	if err == nil {
		return
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		p.logger.Error("task failed permanently",
			"task", qt.task.Name, "attempt", qt.attempt, "err", permanent.Unwrap())
		if qt.policy.OnGiveUp != nil {
			qt.policy.OnGiveUp(permanent.Unwrap())
		}
		return
	}

	if qt.attempt >= qt.policy.MaxAttempts {
		p.logger.Error("task exhausted retries",
			"task", qt.task.Name, "attempts", qt.attempt, "err", err)
		if qt.policy.OnGiveUp != nil {
			qt.policy.OnGiveUp(err)
		}
		return
	}

	delay := p.delayFor(qt)
	p.logger.Warn("task failed, retrying",
		"task", qt.task.Name, "attempt", qt.attempt, "retry_in", delay, "err", err)
	next := queuedTask{task: qt.task, policy: qt.policy, attempt: qt.attempt + 1}
	p.schedule(delay, func() { p.enqueue(next) })
}

func (p *Pool) delayFor(qt queuedTask) time.Duration {
	if qt.policy.Backoff != nil {
		return qt.policy.Backoff(qt.attempt)
	}
	return DefaultBackoff()(qt.attempt)
}

// DefaultBackoff returns the standard retry schedule: 60s doubling per
// attempt, without jitter, capped at 20 minutes.
func DefaultBackoff() func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = time.Minute
		exp.Multiplier = 2
		exp.RandomizationFactor = 0
		exp.MaxInterval = 20 * time.Minute
		exp.MaxElapsedTime = 0
		exp.Reset()
		d := exp.NextBackOff()
		for i := 1; i < attempt; i++ {
			d = exp.NextBackOff()
		}
		if d == backoff.Stop {
			return exp.MaxInterval
		}
		return d
	}
}

// Permanent marks err as non-retryable for the pool.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
