package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultAccount(ctx context.Context) (*models.Account, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, accountID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, accountID uuid.UUID) error

	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, int, error)

	CreateSession(ctx context.Context, session *models.VisualizationSession) error
	GetSession(ctx context.Context, id uuid.UUID, accountID uuid.UUID) (*models.VisualizationSession, error)
	UpdateSessionHistory(ctx context.Context, session *models.VisualizationSession) error

	CreateTransformJob(ctx context.Context, job *models.TransformJob) error
	GetTransformJob(ctx context.Context, id uuid.UUID) (*models.TransformJob, error)
	UpdateTransformJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
}

type ProductFilter struct {
	Category string
	Page     int
	Limit    int
}

type jobUpdateParams struct {
	RetryCount     *int
	ErrorMessage   *string
	Result         []byte
	FallbackResult []byte
}

type JobUpdateOption func(*jobUpdateParams)

func WithRetryCount(n int) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.RetryCount = &n
	}
}

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithResult(result []byte) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Result = result
	}
}

func WithFallbackResult(fallback []byte) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.FallbackResult = fallback
	}
}
