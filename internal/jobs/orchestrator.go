package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/dgallion1/notetree/internal/config"
	"github.com/dgallion1/notetree/internal/metrics"
)

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("orchestrator stopped")

// Orchestrator runs search and find jobs on a bounded worker pool.
type Orchestrator struct {
	jobs   *JobStore
	active *xsync.MapOf[string, *Job]
	queue  chan *Job
	search Searcher
	log    *slog.Logger
	cfg    config.Config

	// OnPhase, when set before Start, is called as each job starts and
	// again when it finishes.
	OnPhase func(JobSnapshot)

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards stopped and the closing of queue against Submit.
	mu      sync.RWMutex
	stopped bool
}

func NewOrchestrator(cfg config.Config, s Searcher, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		active: xsync.NewMapOf[string, *Job](),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		search: s,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.search, o.log, o.phase)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					metrics.QueueDepth.Set(float64(len(o.queue)))
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels running jobs and waits for the workers to exit. Jobs still
// queued are marked cancelled.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	for job := range o.queue {
		job.end(StatusCancelled, "shutdown")
		o.release(job)
	}
}

// Submit queues a job. Any job in flight under the same key is cancelled
// rather than left to finish. After Stop the job ends cancelled and
// ErrStopped is returned.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		job.end(StatusCancelled, "shutdown")
		return ErrStopped
	}

	o.jobs.Put(job)
	metrics.JobsSubmitted.WithLabelValues(string(job.Kind)).Inc()

	if prev, loaded := o.active.LoadAndStore(job.Key, job); loaded && prev != job {
		o.log.Info("superseding job", "job_id", prev.ID, "by", job.ID, "key", job.Key)
		prev.supersede()
		metrics.JobsSuperseded.WithLabelValues(string(prev.Kind)).Inc()
	}

	select {
	case o.queue <- job:
		metrics.QueueDepth.Set(float64(len(o.queue)))
		return nil
	default:
		job.end(StatusFailed, "queue_full")
		metrics.JobsFinished.WithLabelValues(string(job.Kind), string(StatusFailed)).Inc()
		o.release(job)
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// Search submits a whole-document search.
func (o *Orchestrator) Search(query string, skipExcluded bool) (*Job, error) {
	job := NewSearchJob(query, skipExcluded)
	return job, o.Submit(job)
}

// Find submits a find over one node.
func (o *Orchestrator) Find(nodeID int64, query string) (*Job, error) {
	job := NewFindJob(nodeID, query)
	return job, o.Submit(job)
}

// Cancel cancels a job by ID. It reports whether the job exists.
func (o *Orchestrator) Cancel(id string) bool {
	job := o.jobs.Get(id)
	if job == nil {
		return false
	}
	job.Cancel()
	return true
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Active returns the job currently registered under key, if any.
func (o *Orchestrator) Active(key string) (*Job, bool) {
	return o.active.Load(key)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// release drops job from the active set unless a newer job has taken its key.
func (o *Orchestrator) release(job *Job) {
	o.active.Compute(job.Key, func(cur *Job, loaded bool) (*Job, bool) {
		if !loaded {
			return nil, true
		}
		return cur, cur == job
	})
}

func (o *Orchestrator) phase(job *Job) {
	snap := job.Snapshot()
	if snap.Status.Terminal() {
		o.release(job)
	}
	if o.OnPhase != nil {
		o.OnPhase(snap)
	}
}
