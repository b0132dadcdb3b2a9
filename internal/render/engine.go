// Package render implements the asynchronous transform-job engine: a
// content-addressed cache of rendered images, an in-memory job registry with
// monotonic status transitions, and a retrying executor over the image
// provider.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sahityapandiri3/omnishop/internal/cache"
	"github.com/sahityapandiri3/omnishop/internal/config"
	"github.com/sahityapandiri3/omnishop/internal/store"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// commitTimeout bounds the session commit that runs after a job completes.
const commitTimeout = 30 * time.Second

// SubmitRequest describes one transform submission.
type SubmitRequest struct {
	SessionID uuid.UUID
	Operation string
	// ContentHash identifies the transform for caching and coalescing.
	ContentHash string
	// Fallback is served as the job result when every attempt fails. By
	// convention it is the unmodified input image.
	Fallback []byte
	// GenerateRequest is handed to the provider verbatim.
	GenerateRequest models.GenerateRequest
	// OnSuccess commits the rendered result to the session. Invoked at most
	// once, outside the request path, only after the job completes.
	OnSuccess CommitFunc
	// OnDone runs exactly once when the job reaches a terminal status,
	// whether completed or failed.
	OnDone func(job *models.TransformJob)
}

// Engine is the public face of the transform-job subsystem.
type Engine struct {
	registry     *Registry
	executor     *Executor
	contentCache *ContentCache
	cfg          config.RenderConfig
	logger       *slog.Logger
	baseCtx      context.Context
}

func NewEngine(s store.Store, c cache.Cache, provider models.ImageProvider, cfg config.RenderConfig, logger *slog.Logger) *Engine {
	return &Engine{
		registry:     NewRegistry(s, c, cfg.JobRetention, logger),
		executor:     NewExecutor(provider, cfg.MaxRetries, cfg.RetryBaseDelay, cfg.AttemptTimeout, cfg.MaxConcurrent, logger),
		contentCache: NewContentCache(c, cfg.JobRetention, logger),
		cfg:          cfg,
		logger:       logger,
		baseCtx:      context.Background(),
	}
}

// Start launches the retention sweeper and pins the lifecycle context that
// background executions run under. It returns immediately.
func (e *Engine) Start(ctx context.Context) {
	e.baseCtx = ctx
	go e.registry.RunSweeper(ctx, e.cfg.SweepInterval)
}

// Submit resolves a transform request to a job. Three outcomes:
//
//   - The content cache already holds the render: a completed job is created
//     immediately and no provider call happens.
//   - An identical transform is already in flight: the caller's hooks are
//     attached to the existing job and its id is returned.
//   - Otherwise a pending job is created and executed in the background.
//
// In every case the returned job is safe to serialize to the client, and the
// caller polls it by id until it reaches a terminal status.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*models.TransformJob, error) {
	if req.ContentHash == "" {
		return nil, fmt.Errorf("submit: empty content hash")
	}

	cached, ok, err := e.contentCache.Get(ctx, req.ContentHash)
	if err != nil {
		e.logger.Warn("content cache lookup failed, proceeding without it",
			"content_hash", req.ContentHash, "error", err)
	}
	if ok {
		job := e.registry.insertCompleted(ctx, req.SessionID, req.Operation, req.ContentHash, cached)
		e.logger.Info("transform resolved from content cache",
			"job_id", job.ID, "session_id", req.SessionID, "operation", req.Operation)
		go e.notifyCacheHit(job, cached, req.OnSuccess, req.OnDone)
		return job, nil
	}

	job, created := e.registry.getOrCreate(ctx, req.SessionID, req.Operation, req.ContentHash, req.Fallback, req.OnSuccess, req.OnDone)
	if !created {
		e.logger.Info("coalesced transform onto in-flight job",
			"job_id", job.ID, "session_id", req.SessionID, "operation", req.Operation)
		return job, nil
	}

	e.logger.Info("transform job accepted",
		"job_id", job.ID, "session_id", req.SessionID, "operation", req.Operation)
	go e.run(job.ID, req.ContentHash, req.GenerateRequest)
	return job, nil
}

// GetJob returns the job by id for status polling.
func (e *Engine) GetJob(ctx context.Context, id uuid.UUID) (*models.TransformJob, error) {
	return e.registry.Get(ctx, id)
}

// run executes one job to a terminal status. It owns the full lifecycle:
// processing transition, provider attempts, cache write, commit hooks.
func (e *Engine) run(jobID uuid.UUID, contentHash string, genReq models.GenerateRequest) {
	ctx := e.baseCtx

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("panic during transform job execution", "job_id", jobID, "panic", rec)
			if onDone, err := e.registry.MarkFailed(ctx, jobID, fmt.Errorf("internal error: %v", rec), 0); err == nil {
				e.invokeDone(ctx, jobID, onDone)
			}
		}
	}()

	if err := e.registry.MarkProcessing(ctx, jobID); err != nil {
		e.logger.Error("failed to move job to processing", "job_id", jobID, "error", err)
		return
	}

	result, retries, execErr := e.executor.Execute(ctx, genReq)
	if execErr != nil {
		e.logger.Warn("transform job failed", "job_id", jobID, "retries", retries, "error", execErr)
		onDone, err := e.registry.MarkFailed(ctx, jobID, execErr, retries)
		if err != nil {
			e.logger.Error("failed to record job failure", "job_id", jobID, "error", err)
			return
		}
		e.invokeDone(ctx, jobID, onDone)
		return
	}

	if err := e.contentCache.Put(ctx, contentHash, result); err != nil {
		e.logger.Warn("failed to cache rendered result", "job_id", jobID, "error", err)
	}

	onSuccess, onDone, err := e.registry.MarkCompleted(ctx, jobID, result, retries)
	if err != nil {
		e.logger.Error("failed to record job completion", "job_id", jobID, "error", err)
		return
	}
	e.logger.Info("transform job completed", "job_id", jobID, "retries", retries)

	e.invokeCommits(ctx, jobID, result, onSuccess)
	e.invokeDone(ctx, jobID, onDone)
}

func (e *Engine) notifyCacheHit(job *models.TransformJob, result []byte, onSuccess CommitFunc, onDone func(*models.TransformJob)) {
	ctx := e.baseCtx
	if onSuccess != nil {
		e.invokeCommits(ctx, job.ID, result, []CommitFunc{onSuccess})
	}
	if onDone != nil {
		e.invokeDone(ctx, job.ID, []func(*models.TransformJob){onDone})
	}
}

func (e *Engine) invokeCommits(ctx context.Context, jobID uuid.UUID, result []byte, commits []CommitFunc) {
	for _, commit := range commits {
		commitCtx, cancel := context.WithTimeout(ctx, commitTimeout)
		if err := commit(commitCtx, result); err != nil {
			e.logger.Error("failed to commit completed render to session", "job_id", jobID, "error", err)
		}
		cancel()
	}
}

func (e *Engine) invokeDone(ctx context.Context, jobID uuid.UUID, hooks []func(*models.TransformJob)) {
	job, err := e.registry.Get(ctx, jobID)
	if err != nil {
		e.logger.Error("failed to load job for done hooks", "job_id", jobID, "error", err)
		return
	}
	for _, hook := range hooks {
		hook(job)
	}
}
