package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyRunning rejects a start attempt while a job is Running or
	// Cancelling. Starts are never queued.
	ErrAlreadyRunning = errors.New("an enrichment job is already running")

	// ErrUnknownJob rejects cancel and status calls for a job identifier the
	// registry does not hold.
	ErrUnknownJob = errors.New("unknown enrichment job")
)

const defaultItemTimeout = 45 * time.Second

// Registry owns the single enrichment job slot. The slot keeps the most
// recent job after it reaches a terminal state so clients can still poll its
// final snapshot; the next successful Start replaces it.
type Registry struct {
	catalog Catalog
	persist Persistence
	ai      AIService
	log     *slog.Logger

	itemTimeout time.Duration

	mu      sync.Mutex
	current *Job
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithItemTimeout bounds each AI call made by a job.
func WithItemTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.itemTimeout = d
		}
	}
}

// WithLogger sets the logger jobs report progress through.
func WithLogger(log *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry creates a Registry with no job in its slot.
func NewRegistry(catalog Catalog, persist Persistence, ai AIService, opts ...RegistryOption) *Registry {
	r := &Registry{
		catalog:     catalog,
		persist:     persist,
		ai:          ai,
		log:         slog.Default(),
		itemTimeout: defaultItemTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start snapshots the targets needing enrichment and launches a job over
// them. The snapshot, the active-job check, and the slot claim all happen
// under one lock, so two concurrent starts cannot both pass the check. The
// job runs detached from the caller's request; ctx only scopes the catalog
// read.
func (r *Registry) Start(ctx context.Context) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && !r.current.Snapshot().Status.Terminal() {
		return uuid.Nil, ErrAlreadyRunning
	}

	targets, err := r.catalog.ListVideosNeedingEnrichment(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list enrichment targets: %w", err)
	}

	job := newJob(targets, r.ai, r.persist, r.itemTimeout, r.log)
	r.current = job

	go job.run(context.Background())

	return job.ID(), nil
}

// Cancel requests cancellation of the identified job. Cancelling a job that
// already finished succeeds without effect.
func (r *Registry) Cancel(id uuid.UUID) error {
	job, err := r.lookup(id)
	if err != nil {
		return err
	}
	job.Cancel()
	return nil
}

// Status returns a point-in-time snapshot of the identified job.
func (r *Registry) Status(id uuid.UUID) (Snapshot, error) {
	job, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return job.Snapshot(), nil
}

// Current returns a snapshot of the job occupying the slot, if any.
func (r *Registry) Current() (Snapshot, bool) {
	r.mu.Lock()
	job := r.current
	r.mu.Unlock()
	if job == nil {
		return Snapshot{}, false
	}
	return job.Snapshot(), true
}

func (r *Registry) lookup(id uuid.UUID) (*Job, error) {
	r.mu.Lock()
	job := r.current
	r.mu.Unlock()
	if job == nil || job.ID() != id {
		return nil, ErrUnknownJob
	}
	return job, nil
}
