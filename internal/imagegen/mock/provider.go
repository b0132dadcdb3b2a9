// Package mock provides a configurable in-memory ImageProvider for local
// development and tests.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// Provider returns deterministic fake image bytes. GenerateFunc can be swapped
// to simulate failures and timeouts.
type Provider struct {
	GenerateFunc func(ctx context.Context, req models.GenerateRequest) ([]byte, error)
	calls        atomic.Int64
}

func NewProvider() *Provider {
	return &Provider{}
}

// NewFailingProvider returns a provider whose every call fails with a
// retryable provider-unavailable error.
func NewFailingProvider() *Provider {
	return &Provider{
		GenerateFunc: func(ctx context.Context, req models.GenerateRequest) ([]byte, error) {
			return nil, fmt.Errorf("%w: mock failure", models.ErrProviderUnavailable)
		},
	}
}

// NewTimeoutProvider returns a provider that blocks until the context expires.
func NewTimeoutProvider() *Provider {
	return &Provider{
		GenerateFunc: func(ctx context.Context, req models.GenerateRequest) ([]byte, error) {
			<-ctx.Done()
			return nil, fmt.Errorf("%w: %v", models.ErrGenerationTimeout, ctx.Err())
		},
	}
}

func (p *Provider) Name() string {
	return "mock"
}

// Calls returns how many times Generate has been invoked.
func (p *Provider) Calls() int {
	return int(p.calls.Load())
}

func (p *Provider) Generate(ctx context.Context, req models.GenerateRequest) ([]byte, error) {
	p.calls.Add(1)
	if p.GenerateFunc != nil {
		return p.GenerateFunc(ctx, req)
	}
	if len(req.BaseImage) == 0 {
		return nil, fmt.Errorf("%w: empty base image", models.ErrInvalidInput)
	}
	// Deterministic output derived from the input so callers can assert on it.
	out := []byte(fmt.Sprintf("mock-render:%s:%d-products:%d-bytes", req.Operation, len(req.Products), len(req.BaseImage)))
	return out, nil
}

var _ models.ImageProvider = (*Provider)(nil)
