package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgallion1/notetree/internal/metrics"
	"github.com/dgallion1/notetree/internal/search"
)

// Searcher runs the work behind a job. *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, query string, skipExcluded bool) ([]search.Match, error)
	Find(ctx context.Context, id int64, query string) ([]search.Hit, error)
}

// Worker processes a single job.
type Worker struct {
	search  Searcher
	log     *slog.Logger
	onPhase func(*Job)
}

// NewWorker returns a worker that calls onPhase when a job starts and again,
// before Done is closed, when it finishes.
func NewWorker(s Searcher, log *slog.Logger, onPhase func(*Job)) *Worker {
	if onPhase == nil {
		onPhase = func(*Job) {}
	}
	return &Worker{search: s, log: log, onPhase: onPhase}
}

// Process runs job to completion. Cancelling either ctx or the job stops it
// at the next node boundary.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "kind", job.Kind)

	stop := context.AfterFunc(ctx, job.Cancel)
	defer stop()

	jctx := job.Context()
	if jctx.Err() != nil {
		w.done(log, job, StatusCancelled, job.cancelPhase(), 0)
		return
	}

	job.SetStatus(StatusStarted, "searching")
	w.onPhase(job)
	start := time.Now()

	var err error
	switch job.Kind {
	case KindSearch:
		var ms []search.Match
		ms, err = w.search.Search(jctx, job.Query, job.SkipExcluded)
		job.SetMatches(ms)
	case KindFind:
		var hits []search.Hit
		hits, err = w.search.Find(jctx, job.NodeID, job.Query)
		if err == nil && jctx.Err() != nil {
			err = search.ErrCancelled
		}
		job.SetHits(hits)
	}
	elapsed := time.Since(start)

	switch {
	case err == nil:
		w.done(log, job, StatusFinished, "done", elapsed)
	case errors.Is(err, search.ErrCancelled), errors.Is(err, context.Canceled):
		w.done(log, job, StatusCancelled, job.cancelPhase(), elapsed)
	default:
		log.Error("job failed", "error", err)
		job.AddError(err.Error())
		w.done(log, job, StatusFailed, "failed", elapsed)
	}
}

func (w *Worker) done(log *slog.Logger, job *Job, status JobStatus, phase string, elapsed time.Duration) {
	if !job.finish(status, phase) {
		return
	}
	snap := job.Snapshot()
	metrics.JobsFinished.WithLabelValues(string(job.Kind), string(status)).Inc()
	if elapsed > 0 {
		metrics.SearchDuration.WithLabelValues(string(job.Kind), string(status)).Observe(elapsed.Seconds())
	}
	log.Info("job complete",
		"status", status,
		"phase", phase,
		"matches", snap.Progress.Matches,
		"hits", snap.Progress.Hits,
		"duration", elapsed,
	)
	w.onPhase(job)
	job.closeDone()
}
