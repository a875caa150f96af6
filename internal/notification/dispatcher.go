package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/leave-management/internal"
)

var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is shut down")
)

type Job struct {
	Kind  string
	Email Email
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification", "worker_id", w.ID, "kind", job.Kind)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher delivers emails on a fixed pool of workers fed from a bounded
// queue. Delivery failures are logged and dropped.
type Dispatcher struct {
	mailer      Mailer
	sendTimeout time.Duration
	logger      *slog.Logger

	jobQueue     chan Job
	workerPool   chan chan Job
	maxWorkers   int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	dispatchDone chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(mailer Mailer, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	d := &Dispatcher{
		mailer:      mailer,
		sendTimeout: cfg.SendTimeout,
		logger:      logger,

		jobQueue:     make(chan Job, queueSize),
		workerPool:   make(chan chan Job, maxWorkers),
		maxWorkers:   maxWorkers,
		ctx:          ctx,
		cancel:       cancel,
		dispatchDone: make(chan struct{}),
	}

	for i := 0; i < d.maxWorkers; i++ {
		worker := NewWorker(i, d.workerPool, d.logger)
		worker.Start(d.ctx, &d.wg, d.process)
	}
	go d.dispatch()

	d.logger.Info("notification worker pool started",
		"max_workers", d.maxWorkers,
		"queue_size", cap(d.jobQueue))

	return d
}

func (d *Dispatcher) dispatch() {
	defer close(d.dispatchDone)

	for job := range d.jobQueue {
		select {
		case jobChannel := <-d.workerPool:
			select {
			case jobChannel <- job:
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) process(job Job) {
	if err := d.Send(context.Background(), job.Email); err != nil {
		d.logger.Error("notification delivery failed",
			"kind", job.Kind,
			"to", job.Email.To,
			"error", err)
		return
	}
	d.logger.Info("notification delivered", "kind", job.Kind, "to", job.Email.To)
}

// Send delivers synchronously, bounded by the configured send timeout.
func (d *Dispatcher) Send(ctx context.Context, email Email) error {
	ctx, cancel := internal.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.mailer.Send(ctx, email)
}

// Enqueue hands the email to the pool without blocking.
func (d *Dispatcher) Enqueue(kind string, email Email) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobQueue <- Job{Kind: kind, Email: email}:
		return nil
	default:
		d.logger.Warn("notification queue full, dropping email",
			"kind", kind,
			"queue_capacity", cap(d.jobQueue))
		return ErrQueueFull
	}
}

// Shutdown stops intake and waits for queued emails to be delivered. When ctx
// expires first, the remaining jobs are abandoned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobQueue)
	d.mu.Unlock()

	d.logger.Info("shutting down notification dispatcher", "pending", len(d.jobQueue))

	done := make(chan struct{})
	go func() {
		<-d.dispatchDone
		d.cancel()
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification dispatcher shutdown complete")
		return nil
	case <-ctx.Done():
		d.cancel()
		d.logger.Warn("notification dispatcher shutdown timed out", "dropped", len(d.jobQueue))
		return ctx.Err()
	}
}
