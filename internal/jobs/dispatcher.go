package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sevigo/code-reviser/internal/core"
)

// ErrQueueFull is returned by Dispatch when no more events can be buffered.
var ErrQueueFull = errors.New("job queue is full, cannot accept new revision job")

const defaultQueueSize = 100

// dispatcher implements core.JobDispatcher and manages a pool of worker goroutines
// for processing review events as revision jobs.
type dispatcher struct {
	job        core.Job               // Job implementation executed by each worker.
	jobQueue   chan *core.ReviewEvent // Queue of incoming review events.
	maxWorkers int                    // Number of concurrent workers.
	wg         sync.WaitGroup         // Tracks active workers for graceful shutdown.
	ctx        context.Context        // Base context for job runs, canceled on Stop.
	cancel     context.CancelFunc
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool.
// If maxWorkers is 0 or negative, it defaults to 1. Runs against the shared
// working copy are serialized by its file lock regardless of the pool size.
func NewDispatcher(job core.Job, maxWorkers int, logger *slog.Logger) core.JobDispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.ReviewEvent, defaultQueueSize),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
	d.startWorkers()
	return d
}

// startWorkers launches maxWorkers goroutines to process jobs from the queue.
func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes events from the queue until it's closed.
func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting revision worker", "id", workerID)

	for event := range d.jobQueue {
		d.processEvent(workerID, event)
	}

	d.logger.Info("shutting down revision worker", "id", workerID)
}

func (d *dispatcher) processEvent(workerID int, event *core.ReviewEvent) {
	d.logger.Info("worker processing job",
		"worker_id", workerID,
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
	)

	result, err := d.job.Run(d.ctx, event)
	if err != nil {
		d.logger.Error("revision job failed",
			"repo", event.RepoFullName,
			"pr", event.PRNumber,
			"error", err,
		)
		return
	}
	d.logger.Info("revision job completed",
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
		"pushed", result.Pushed,
	)
}

// Dispatch queues a review event for processing by a worker.
func (d *dispatcher) Dispatch(_ context.Context, event *core.ReviewEvent) error {
	d.logger.Info("queuing revision job", "repo", event.RepoFullName, "pr", event.PRNumber)

	select {
	case d.jobQueue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop gracefully shuts down the dispatcher, waiting for all workers to finish.
// Queued events are still processed; Stop must not race with Dispatch.
func (d *dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	close(d.jobQueue)
	d.wg.Wait()
	d.cancel()
	d.logger.Info("all revision jobs have finished")
}
