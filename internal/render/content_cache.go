package render

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/sahityapandiri3/omnishop/internal/cache"
)

// ContentCache stores rendered images keyed by content hash. Entries are
// write-once: the first successful render for a hash wins and later writes
// are discarded. Only successful renders are ever stored.
type ContentCache struct {
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewContentCache(c cache.Cache, ttl time.Duration, logger *slog.Logger) *ContentCache {
	return &ContentCache{cache: c, ttl: ttl, logger: logger}
}

// Get returns the cached render for hash, if present.
func (c *ContentCache) Get(ctx context.Context, hash string) ([]byte, bool, error) {
	return c.cache.Get(ctx, cache.RenderResultKey(hash))
}

// Put stores result under hash unless an entry already exists. A conflicting
// write for an existing hash is dropped; if the stored bytes differ from the
// attempted write the conflict is logged, since identical inputs should have
// produced identical outputs.
func (c *ContentCache) Put(ctx context.Context, hash string, result []byte) error {
	wrote, err := c.cache.SetNX(ctx, cache.RenderResultKey(hash), result, c.ttl)
	if err != nil {
		return err
	}
	if wrote {
		return nil
	}

	existing, ok, err := c.cache.Get(ctx, cache.RenderResultKey(hash))
	if err == nil && ok && !bytes.Equal(existing, result) {
		c.logger.Warn("discarded conflicting write for cached render",
			"content_hash", hash,
			"existing_bytes", len(existing),
			"attempted_bytes", len(result))
	}
	return nil
}
