package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Transform operations. The operation name is part of the content hash, so two
// different operations over the same image never collide in the cache.
const (
	OpRemoveFurniture  = "remove_furniture"
	OpAddProduct       = "add_product"
	OpTransformProduct = "transform_product"
	OpRemoveProduct    = "remove_product"
	OpReplaceProduct   = "replace_product"
)

// TransformJob tracks one asynchronous image-generation invocation. The API
// returns a job id on every mutating session call; the client polls
// GET /api/v1/jobs/{jobID} until status is completed or failed.
//
// Status transitions are monotonic: pending -> processing -> completed|failed.
// A terminal job is never resurrected.
type TransformJob struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	SessionID      uuid.UUID `db:"session_id"      json:"session_id"`
	Operation      string    `db:"operation"       json:"operation"`
	ContentHash    string    `db:"content_hash"    json:"content_hash"`
	Status         string    `db:"status"          json:"status"`
	RetryCount     int       `db:"retry_count"     json:"retry_count"`
	Result         []byte    `db:"result"          json:"result,omitempty"`
	FallbackResult []byte    `db:"fallback_result" json:"fallback_result,omitempty"`
	ErrorMessage   *string   `db:"error_message"   json:"error_message,omitempty"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

// Terminal reports whether the job has reached a final status.
func (j *TransformJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Clone returns a copy safe to hand to callers while the registry keeps
// mutating the original.
func (j *TransformJob) Clone() *TransformJob {
	out := *j
	out.Result = append([]byte(nil), j.Result...)
	out.FallbackResult = append([]byte(nil), j.FallbackResult...)
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		out.ErrorMessage = &msg
	}
	return &out
}
