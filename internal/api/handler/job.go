package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/sahityapandiri3/omnishop/internal/api/response"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// JobReader is the polling surface of the render engine.
type JobReader interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.TransformJob, error)
}

// NewPollJobHandler handles GET /api/v1/jobs/{jobID}. A failed job is a
// normal 200 response carrying status "failed" and the fallback image;
// provider failures are expected outcomes, not server errors.
func NewPollJobHandler(jobs JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, ok := pathUUID(w, r, "jobID")
		if !ok {
			return
		}

		job, err := jobs.GetJob(r.Context(), jobID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, jobView(job))
	}
}
