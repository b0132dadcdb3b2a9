package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RenderResultKey(contentHash string) string {
	return fmt.Sprintf("render:result:%s", contentHash)
}

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
