package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/notetree/internal/search"
)

// JobStatus represents the state of a search job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusStarted   JobStatus = "started"
	StatusFinished  JobStatus = "finished"
	StatusCancelled JobStatus = "cancelled"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s JobStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled || s == StatusFailed
}

// Kind selects what a job runs.
type Kind string

const (
	KindSearch Kind = "search"
	KindFind   Kind = "find"
)

// Job tracks one whole-document search or per-node find.
type Job struct {
	mu sync.Mutex

	ID   string `json:"job_id"`
	Key  string `json:"key"`
	Kind Kind   `json:"kind"`

	Query        string `json:"query"`
	NodeID       int64  `json:"node_id,omitempty"`
	SkipExcluded bool   `json:"skip_excluded"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	superseded bool
	matches    []search.Match
	hits       []search.Hit
	errors     []string
}

// Progress tracks result counts.
type Progress struct {
	Matches int      `json:"matches"`
	Hits    int      `json:"hits"`
	Errors  []string `json:"errors"`
}

// NewSearchJob creates a queued whole-document search. All search jobs share
// one key, so a new one supersedes any in flight.
func NewSearchJob(query string, skipExcluded bool) *Job {
	j := newJob(KindSearch, "search")
	j.Query = query
	j.SkipExcluded = skipExcluded
	return j
}

// NewFindJob creates a queued find over one node's content. It supersedes
// earlier finds on the same node.
func NewFindJob(nodeID int64, query string) *Job {
	j := newJob(KindFind, fmt.Sprintf("find:%d", nodeID))
	j.NodeID = nodeID
	j.Query = query
	return j
}

func newJob(kind Kind, key string) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Key:       key,
		Kind:      kind,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs older than the TTL. Jobs still queued or
// running are kept.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetMatches records whole-document search results.
func (j *Job) SetMatches(ms []search.Match) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.matches = ms
	j.Progress.Matches = len(ms)
	j.UpdatedAt = time.Now()
}

// SetHits records find results.
func (j *Job) SetHits(hits []search.Hit) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.hits = hits
	j.Progress.Hits = len(hits)
	j.UpdatedAt = time.Now()
}

// Matches returns the search results recorded so far.
func (j *Job) Matches() []search.Match {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.matches
}

// Hits returns the find results recorded so far.
func (j *Job) Hits() []search.Hit {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.hits
}

// Cancel asks the job to stop. A queued job never starts; a running one
// stops at the next node boundary and keeps its partial results.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) supersede() {
	j.mu.Lock()
	j.superseded = true
	j.mu.Unlock()
	j.cancel()
}

// cancelPhase names why a cancelled job stopped.
func (j *Job) cancelPhase() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.superseded {
		return "superseded"
	}
	return "cancelled"
}

// Context is cancelled by Cancel.
func (j *Job) Context() context.Context {
	return j.ctx
}

// Done is closed once the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// finish sets the terminal status. Later calls are ignored and report
// false. Waiters are released by closeDone.
func (j *Job) finish(status JobStatus, phase string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return false
	}
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	j.cancel()
	return true
}

func (j *Job) closeDone() {
	close(j.done)
}

// end finishes the job and releases waiters at once.
func (j *Job) end(status JobStatus, phase string) {
	if j.finish(status, phase) {
		j.closeDone()
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string         `json:"job_id"`
	Kind         Kind           `json:"kind"`
	Query        string         `json:"query"`
	NodeID       int64          `json:"node_id,omitempty"`
	SkipExcluded bool           `json:"skip_excluded"`
	Status       JobStatus      `json:"status"`
	Phase        string         `json:"phase"`
	Progress     Progress       `json:"progress"`
	Matches      []search.Match `json:"matches"`
	Hits         []search.Hit   `json:"hits,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	matches := append([]search.Match{}, j.matches...)
	var hits []search.Hit
	if j.Kind == KindFind {
		hits = append([]search.Hit{}, j.hits...)
	}
	return JobSnapshot{
		ID:           j.ID,
		Kind:         j.Kind,
		Query:        j.Query,
		NodeID:       j.NodeID,
		SkipExcluded: j.SkipExcluded,
		Status:       j.Status,
		Phase:        j.Phase,
		Progress: Progress{
			Matches: j.Progress.Matches,
			Hits:    j.Progress.Hits,
			Errors:  errs,
		},
		Matches:   matches,
		Hits:      hits,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
