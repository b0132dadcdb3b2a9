package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sahityapandiri3/omnishop/internal/imagegen"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// Executor drives provider invocations with bounded retries, exponential
// backoff, a per-attempt timeout, and a concurrency cap shared across all
// jobs.
type Executor struct {
	provider       models.ImageProvider
	sem            chan struct{}
	maxRetries     int
	baseDelay      time.Duration
	attemptTimeout time.Duration
	logger         *slog.Logger
}

func NewExecutor(provider models.ImageProvider, maxRetries int, baseDelay, attemptTimeout time.Duration, maxConcurrent int, logger *slog.Logger) *Executor {
	return &Executor{
		provider:       provider,
		sem:            make(chan struct{}, maxConcurrent),
		maxRetries:     maxRetries,
		baseDelay:      baseDelay,
		attemptTimeout: attemptTimeout,
		logger:         logger,
	}
}

// Execute runs the provider until it succeeds, fails a non-retryable way, or
// exhausts the retry budget. It returns the rendered bytes, the number of
// failed attempts, and the final error if no attempt succeeded. Backoff
// doubles per attempt: base, 2x base, 4x base.
func (x *Executor) Execute(ctx context.Context, req models.GenerateRequest) ([]byte, int, error) {
	select {
	case x.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
	defer func() { <-x.sem }()

	var lastErr error
	for attempt := 0; attempt < x.maxRetries; attempt++ {
		if attempt > 0 {
			delay := x.baseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, x.attemptTimeout)
		result, err := x.provider.Generate(attemptCtx, req)
		cancel()

		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		if !imagegen.Retryable(err) {
			x.logger.Warn("image generation failed with non-retryable error",
				"provider", x.provider.Name(), "operation", req.Operation, "error", err)
			return nil, attempt + 1, err
		}
		x.logger.Warn("image generation attempt failed",
			"provider", x.provider.Name(), "operation", req.Operation,
			"attempt", attempt+1, "max_attempts", x.maxRetries, "error", err)
	}

	return nil, x.maxRetries, fmt.Errorf("all %d attempts failed: %w", x.maxRetries, lastErr)
}
