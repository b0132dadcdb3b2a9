package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahityapandiri3/omnishop/internal/cache"
	"github.com/sahityapandiri3/omnishop/internal/store"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

var (
	ErrJobNotFound = errors.New("transform job not found")
	// ErrTerminalJob is returned when a transition targets a job that already
	// reached completed or failed. Terminal jobs are never resurrected.
	ErrTerminalJob = errors.New("transform job already in terminal status")
)

// CommitFunc applies a successful render to its session. The registry invokes
// it outside the request path, after the job reaches completed.
type CommitFunc func(ctx context.Context, result []byte) error

// jobEntry is the registry's private view of one job. Waiters accumulate when
// identical in-flight submissions are coalesced onto the same job.
type jobEntry struct {
	job       *models.TransformJob
	onSuccess []CommitFunc
	onDone    []func(job *models.TransformJob)
}

// Registry is the in-memory authority for transform-job state. Every status
// transition goes through it and is monotonic: pending -> processing ->
// completed or failed. Postgres holds a durable mirror of each row and Redis
// a short-lived status mirror for cheap polling; neither is consulted for
// transition decisions.
type Registry struct {
	mu        sync.RWMutex
	jobs      map[uuid.UUID]*jobEntry
	byHash    map[string]uuid.UUID
	store     store.Store
	cache     cache.Cache
	retention time.Duration
	logger    *slog.Logger
}

func NewRegistry(s store.Store, c cache.Cache, retention time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		jobs:      make(map[uuid.UUID]*jobEntry),
		byHash:    make(map[string]uuid.UUID),
		store:     s,
		cache:     c,
		retention: retention,
		logger:    logger,
	}
}

// getOrCreate returns the active job for hash, creating a pending one when
// none exists. The second return value reports whether the job was created by
// this call; when false the waiters were attached to an existing in-flight
// job and the caller must not start another execution.
func (r *Registry) getOrCreate(ctx context.Context, sessionID uuid.UUID, operation, hash string, fallback []byte, onSuccess CommitFunc, onDone func(*models.TransformJob)) (*models.TransformJob, bool) {
	r.mu.Lock()

	if id, ok := r.byHash[hash]; ok {
		// A terminal job never absorbs waiters: its hooks already ran and
		// nothing would ever invoke new ones. Treat the mapping as stale.
		if entry, live := r.jobs[id]; live && !entry.job.Terminal() {
			if onSuccess != nil {
				entry.onSuccess = append(entry.onSuccess, onSuccess)
			}
			if onDone != nil {
				entry.onDone = append(entry.onDone, onDone)
			}
			job := entry.job.Clone()
			r.mu.Unlock()
			return job, false
		}
		delete(r.byHash, hash)
	}

	now := time.Now().UTC()
	job := &models.TransformJob{
		ID:             uuid.New(),
		SessionID:      sessionID,
		Operation:      operation,
		ContentHash:    hash,
		Status:         models.JobStatusPending,
		FallbackResult: append([]byte(nil), fallback...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	entry := &jobEntry{job: job}
	if onSuccess != nil {
		entry.onSuccess = append(entry.onSuccess, onSuccess)
	}
	if onDone != nil {
		entry.onDone = append(entry.onDone, onDone)
	}
	r.jobs[job.ID] = entry
	r.byHash[hash] = job.ID
	r.mu.Unlock()

	r.persist(ctx, job, nil)
	return job.Clone(), true
}

// insertCompleted records a job that resolved from the content cache without
// provider involvement. It is born terminal.
func (r *Registry) insertCompleted(ctx context.Context, sessionID uuid.UUID, operation, hash string, result []byte) *models.TransformJob {
	now := time.Now().UTC()
	job := &models.TransformJob{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Operation:   operation,
		ContentHash: hash,
		Status:      models.JobStatusCompleted,
		Result:      append([]byte(nil), result...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = &jobEntry{job: job}
	r.mu.Unlock()

	r.persist(ctx, job, []store.JobUpdateOption{store.WithResult(job.Result)})
	return job.Clone()
}

// Get returns the job by id, consulting the in-memory map first and falling
// back to Postgres for jobs swept from memory or created before a restart.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*models.TransformJob, error) {
	r.mu.RLock()
	if entry, ok := r.jobs[id]; ok {
		job := entry.job.Clone()
		r.mu.RUnlock()
		return job, nil
	}
	r.mu.RUnlock()

	job, err := r.store.GetTransformJob(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transform job: %w", err)
	}
	return job, nil
}

// MarkProcessing moves a pending job to processing.
func (r *Registry) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	_, _, err := r.transition(ctx, id, models.JobStatusProcessing, func(job *models.TransformJob) error {
		if job.Terminal() {
			return fmt.Errorf("%w: cannot move %s job to processing", ErrTerminalJob, job.Status)
		}
		return nil
	}, nil)
	return err
}

// MarkCompleted moves a job to completed with its rendered result and returns
// the waiters registered against it. The caller invokes them after the
// transition is visible.
func (r *Registry) MarkCompleted(ctx context.Context, id uuid.UUID, result []byte, retryCount int) ([]CommitFunc, []func(*models.TransformJob), error) {
	return r.transition(ctx, id, models.JobStatusCompleted, func(job *models.TransformJob) error {
		if job.Terminal() {
			return fmt.Errorf("%w: cannot complete %s job", ErrTerminalJob, job.Status)
		}
		job.Result = append([]byte(nil), result...)
		job.RetryCount = retryCount
		return nil
	}, []store.JobUpdateOption{store.WithResult(result), store.WithRetryCount(retryCount)})
}

// MarkFailed moves a job to failed. The fallback result recorded at creation
// stays on the job so callers can serve the unmodified input image.
func (r *Registry) MarkFailed(ctx context.Context, id uuid.UUID, cause error, retryCount int) ([]func(*models.TransformJob), error) {
	msg := cause.Error()
	_, onDone, err := r.transition(ctx, id, models.JobStatusFailed, func(job *models.TransformJob) error {
		if job.Terminal() {
			return fmt.Errorf("%w: cannot fail %s job", ErrTerminalJob, job.Status)
		}
		job.ErrorMessage = &msg
		job.RetryCount = retryCount
		return nil
	}, []store.JobUpdateOption{store.WithErrorMessage(msg), store.WithRetryCount(retryCount)})
	return onDone, err
}

// transition applies one status change under a single critical section. When
// the new status is terminal it also detaches the waiters and releases the
// hash mapping in the same section, so a concurrent getOrCreate can never
// attach hooks to a job that is already past invoking them.
func (r *Registry) transition(ctx context.Context, id uuid.UUID, status string, apply func(*models.TransformJob) error, opts []store.JobUpdateOption) ([]CommitFunc, []func(*models.TransformJob), error) {
	r.mu.Lock()
	entry, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return nil, nil, ErrJobNotFound
	}
	if err := apply(entry.job); err != nil {
		r.mu.Unlock()
		return nil, nil, err
	}
	entry.job.Status = status
	entry.job.UpdatedAt = time.Now().UTC()
	job := entry.job.Clone()

	var onSuccess []CommitFunc
	var onDone []func(*models.TransformJob)
	if entry.job.Terminal() {
		onSuccess, onDone = entry.onSuccess, entry.onDone
		entry.onSuccess, entry.onDone = nil, nil
		if current, mapped := r.byHash[entry.job.ContentHash]; mapped && current == id {
			delete(r.byHash, entry.job.ContentHash)
		}
	}
	r.mu.Unlock()

	r.mirror(ctx, job, opts)
	return onSuccess, onDone, nil
}

// persist writes the initial row to Postgres and the status mirror to Redis.
// Both are best-effort: the in-memory entry is already authoritative.
func (r *Registry) persist(ctx context.Context, job *models.TransformJob, opts []store.JobUpdateOption) {
	if err := r.store.CreateTransformJob(ctx, job); err != nil {
		r.logger.Error("failed to persist transform job", "job_id", job.ID, "error", err)
	}
	if len(opts) > 0 {
		if err := r.store.UpdateTransformJobStatus(ctx, job.ID, job.Status, opts...); err != nil {
			r.logger.Error("failed to persist transform job update", "job_id", job.ID, "error", err)
		}
	}
	if err := r.cache.SetJobStatus(ctx, job.ID, job.Status, r.retention); err != nil {
		r.logger.Warn("failed to mirror job status to cache", "job_id", job.ID, "error", err)
	}
}

func (r *Registry) mirror(ctx context.Context, job *models.TransformJob, opts []store.JobUpdateOption) {
	if err := r.store.UpdateTransformJobStatus(ctx, job.ID, job.Status, opts...); err != nil {
		r.logger.Error("failed to persist transform job update", "job_id", job.ID, "error", err)
	}
	if err := r.cache.SetJobStatus(ctx, job.ID, job.Status, r.retention); err != nil {
		r.logger.Warn("failed to mirror job status to cache", "job_id", job.ID, "error", err)
	}
}

// Sweep drops terminal jobs whose last update is older than the retention
// window and returns how many were removed. Non-terminal jobs are never
// swept regardless of age.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.jobs {
		if !entry.job.Terminal() || entry.job.UpdatedAt.After(cutoff) {
			continue
		}
		delete(r.jobs, id)
		if current, ok := r.byHash[entry.job.ContentHash]; ok && current == id {
			delete(r.byHash, entry.job.ContentHash)
		}
		removed++
	}
	return removed
}

// RunSweeper runs Sweep on the given interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Sweep(time.Now().UTC()); removed > 0 {
				r.logger.Info("swept expired transform jobs", "removed", removed)
			}
		}
	}
}

// Len returns the number of jobs currently held in memory.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
