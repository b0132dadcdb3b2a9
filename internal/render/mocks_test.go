package render

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahityapandiri3/omnishop/internal/cache"
	"github.com/sahityapandiri3/omnishop/internal/store"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// memoryCache is an in-memory cache.Cache for tests.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	status  map[uuid.UUID]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		entries: make(map[string][]byte),
		status:  make(map[uuid.UUID]string),
	}
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), value...)
	return nil
}

func (c *memoryCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return false, nil
	}
	c.entries[key] = append([]byte(nil), value...)
	return true, nil
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memoryCache) Ping(ctx context.Context) error { return nil }

func (c *memoryCache) SetJobStatus(ctx context.Context, jobID uuid.UUID, status string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[jobID] = status
	return nil
}

func (c *memoryCache) GetJobStatus(ctx context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.status[jobID]
	return s, ok, nil
}

func (c *memoryCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	return 1, nil
}

var _ cache.Cache = (*memoryCache)(nil)

// stubStore implements store.Store with in-memory transform-job rows. The
// other methods are unused by this package.
type stubStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.TransformJob
}

func newStubStore() *stubStore {
	return &stubStore{jobs: make(map[uuid.UUID]*models.TransformJob)}
}

func (s *stubStore) Ping(ctx context.Context) error { return nil }

func (s *stubStore) GetDefaultAccount(ctx context.Context) (*models.Account, error) {
	return nil, store.ErrNotFound
}

func (s *stubStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	return nil, nil
}

func (s *stubStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error { return nil }

func (s *stubStore) ListAPIKeys(ctx context.Context, accountID uuid.UUID) ([]*models.APIKey, error) {
	return nil, nil
}

func (s *stubStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, accountID uuid.UUID) error {
	return nil
}

func (s *stubStore) CreateProduct(ctx context.Context, product *models.Product) error { return nil }

func (s *stubStore) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return nil, store.ErrNotFound
}

func (s *stubStore) ListProducts(ctx context.Context, filter store.ProductFilter) ([]*models.Product, int, error) {
	return nil, 0, nil
}

func (s *stubStore) CreateSession(ctx context.Context, session *models.VisualizationSession) error {
	return nil
}

func (s *stubStore) GetSession(ctx context.Context, id uuid.UUID, accountID uuid.UUID) (*models.VisualizationSession, error) {
	return nil, store.ErrNotFound
}

func (s *stubStore) UpdateSessionHistory(ctx context.Context, session *models.VisualizationSession) error {
	return nil
}

func (s *stubStore) CreateTransformJob(ctx context.Context, job *models.TransformJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *stubStore) GetTransformJob(ctx context.Context, id uuid.UUID) (*models.TransformJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return job.Clone(), nil
}

func (s *stubStore) UpdateTransformJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
	}
	return nil
}

var _ store.Store = (*stubStore)(nil)
