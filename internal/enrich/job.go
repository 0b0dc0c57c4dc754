package enrich

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRunning    Status = "running"
	StatusCancelling Status = "cancelling"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Outcome records how one target fared.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// ItemResult is the recorded outcome for one processed target.
type ItemResult struct {
	VideoID uuid.UUID `json:"video_id"`
	Outcome Outcome   `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
}

// Snapshot is a consistent read-only view of a job, safe to hand to a polling
// client while the loop keeps running.
type Snapshot struct {
	JobID       uuid.UUID   `json:"job_id"`
	Status      Status      `json:"status"`
	Cursor      int         `json:"cursor"`
	Total       int         `json:"total"`
	Succeeded   int         `json:"succeeded"`
	FailedItems int         `json:"failed_items"`
	LastOutcome *ItemResult `json:"last_outcome,omitempty"`
	Failure     string      `json:"failure,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
}

// Job processes a fixed snapshot of targets, one AI call per target. All
// mutable fields are guarded by mu; run is the only writer of cursor and
// results, but Cancel and Snapshot touch state from other goroutines.
type Job struct {
	id      uuid.UUID
	targets []Target

	ai      AIService
	persist Persistence
	log     *slog.Logger

	itemTimeout time.Duration

	mu         sync.Mutex
	status     Status
	cursor     int
	results    []ItemResult
	cancelled  bool
	failure    string
	startedAt  time.Time
	finishedAt time.Time
}

func newJob(targets []Target, ai AIService, persist Persistence, itemTimeout time.Duration, log *slog.Logger) *Job {
	if log == nil {
		log = slog.Default()
	}
	return &Job{
		id:          uuid.New(),
		targets:     targets,
		ai:          ai,
		persist:     persist,
		log:         log,
		itemTimeout: itemTimeout,
		status:      StatusIdle,
		results:     make([]ItemResult, 0, len(targets)),
	}
}

// ID returns the job identifier.
func (j *Job) ID() uuid.UUID { return j.id }

// Cancel requests cooperative cancellation. Calling it on a job that already
// reached a terminal state is a successful no-op. The running loop observes
// the flag between items, so an in-flight AI call is never interrupted and
// its outcome is still recorded.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.cancelled = true
	if j.status == StatusRunning {
		j.status = StatusCancelling
	}
}

// Snapshot returns a consistent view of the job under the same lock the loop
// mutates under, so a reader never sees the cursor ahead of the outcome list.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Snapshot{
		JobID:     j.id,
		Status:    j.status,
		Cursor:    j.cursor,
		Total:     len(j.targets),
		Failure:   j.failure,
		StartedAt: j.startedAt,
	}
	for _, r := range j.results {
		switch r.Outcome {
		case OutcomeSuccess:
			s.Succeeded++
		case OutcomeFailed:
			s.FailedItems++
		}
	}
	if len(j.results) > 0 {
		last := j.results[len(j.results)-1]
		s.LastOutcome = &last
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// run walks the target snapshot in order. It belongs to exactly one
// goroutine; the registry spawns it once per job.
func (j *Job) run(ctx context.Context) {
	j.mu.Lock()
	j.status = StatusRunning
	j.startedAt = time.Now()
	j.mu.Unlock()

	j.log.Info("enrichment job started", "job_id", j.id, "targets", len(j.targets))

	for _, target := range j.targets {
		if j.cancelRequested() || ctx.Err() != nil {
			j.finish(StatusCancelled, "")
			j.log.Info("enrichment job cancelled",
				"job_id", j.id, "processed", len(j.results), "total", len(j.targets))
			return
		}

		result, fatal := j.processTarget(ctx, target)

		j.mu.Lock()
		j.results = append(j.results, result)
		j.cursor++
		j.mu.Unlock()

		if fatal != "" {
			j.finish(StatusFailed, fatal)
			j.log.Error("enrichment job aborted", "job_id", j.id, "error", fatal)
			return
		}

		j.log.Info("enrichment progress",
			"job_id", j.id, "cursor", j.cursor, "total", len(j.targets),
			"video_id", result.VideoID, "outcome", result.Outcome)
	}

	// A cancel that lands after the last item loses the race; the work is
	// done either way.
	j.finish(StatusCompleted, "")
	j.log.Info("enrichment job completed", "job_id", j.id, "processed", len(j.results))
}

// processTarget handles one item. A non-empty fatal string aborts the job;
// per-item AI failures are recorded in the result and the loop continues.
func (j *Job) processTarget(ctx context.Context, target Target) (ItemResult, string) {
	if !target.NeedsEnrichment() {
		return ItemResult{VideoID: target.ID, Outcome: OutcomeSkipped, Detail: "metadata already present"}, ""
	}

	callCtx := ctx
	if j.itemTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, j.itemTimeout)
		defer cancel()
	}

	suggestion, err := j.ai.SuggestMetadata(callCtx, target)
	if err != nil {
		j.log.Warn("metadata suggestion failed",
			"job_id", j.id, "video_id", target.ID, "error", err)
		return ItemResult{VideoID: target.ID, Outcome: OutcomeFailed, Detail: err.Error()}, ""
	}

	title := strings.TrimSpace(suggestion.Title)
	description := strings.TrimSpace(suggestion.Description)
	if title == "" {
		title = TitleHint(target.Filename)
	}

	if err := j.persist.UpdateMetadata(ctx, target.ID, title, description); err != nil {
		return ItemResult{VideoID: target.ID, Outcome: OutcomeFailed, Detail: err.Error()},
			"persist metadata for " + target.ID.String() + ": " + err.Error()
	}

	return ItemResult{VideoID: target.ID, Outcome: OutcomeSuccess}, ""
}

func (j *Job) cancelRequested() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

func (j *Job) finish(status Status, failure string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	j.failure = failure
	j.finishedAt = time.Now()
}
