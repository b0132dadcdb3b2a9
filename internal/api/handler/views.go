package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// SessionView is the API shape of a session. History entries carry full
// rendered images, so only the current state is expanded; the stacks are
// reported as depths.
type SessionView struct {
	ID           uuid.UUID `json:"id"`
	CurrentState StateView `json:"current_state"`
	UndoDepth    int       `json:"undo_depth"`
	RedoDepth    int       `json:"redo_depth"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type StateView struct {
	RenderedImage []byte             `json:"rendered_image"`
	Placements    []models.Placement `json:"placements"`
	Timestamp     time.Time          `json:"timestamp"`
}

func sessionView(s *models.VisualizationSession) SessionView {
	current := s.Current()
	view := SessionView{
		ID:        s.ID,
		UndoDepth: len(s.History) - 1,
		RedoDepth: len(s.RedoStack),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if current != nil {
		placements := current.Placements
		if placements == nil {
			placements = []models.Placement{}
		}
		view.CurrentState = StateView{
			RenderedImage: current.RenderedImage,
			Placements:    placements,
			Timestamp:     current.Timestamp,
		}
	}
	return view
}

// JobView is the API shape of a transform job. Result is present iff
// completed; FallbackResult iff failed.
type JobView struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	Operation      string    `json:"operation"`
	Status         string    `json:"status"`
	RetryCount     int       `json:"retry_count"`
	Result         []byte    `json:"result,omitempty"`
	FallbackResult []byte    `json:"fallback_result,omitempty"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func jobView(j *models.TransformJob) JobView {
	view := JobView{
		ID:           j.ID,
		SessionID:    j.SessionID,
		Operation:    j.Operation,
		Status:       j.Status,
		RetryCount:   j.RetryCount,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
	switch j.Status {
	case models.JobStatusCompleted:
		view.Result = j.Result
	case models.JobStatusFailed:
		view.FallbackResult = j.FallbackResult
	}
	return view
}
