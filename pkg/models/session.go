// Package models contains shared data models used across the Omnishop codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Placement bounds. Requests outside these ranges are rejected, never clamped,
// so client and server stay in agreement about what was applied.
const (
	MinScale    = 0.1
	MaxScale    = 5.0
	MinRotation = -180.0
	MaxRotation = 180.0
)

// Placement positions one catalog product within a visualization state.
// ZIndex is unique within a state; it is never renumbered when other
// placements are removed, so stacking order stays stable.
type Placement struct {
	ProductID       uuid.UUID `json:"product_id"`
	X               float64   `json:"x"`
	Y               float64   `json:"y"`
	Scale           float64   `json:"scale"`
	RotationDegrees float64   `json:"rotation_degrees"`
	ZIndex          int       `json:"z_index"`
}

// VisualizationState is an immutable snapshot of a session: the rendered image
// plus every placement, in insertion order. Each state in a session's history
// was the direct result of exactly one committed mutation.
type VisualizationState struct {
	RenderedImage []byte      `json:"rendered_image"`
	Placements    []Placement `json:"placements"`
	Timestamp     time.Time   `json:"timestamp"`
}

// FindPlacement returns the placement for productID, or nil if absent.
func (s *VisualizationState) FindPlacement(productID uuid.UUID) *Placement {
	for i := range s.Placements {
		if s.Placements[i].ProductID == productID {
			return &s.Placements[i]
		}
	}
	return nil
}

// MaxZIndex returns the highest z-index in the state, or 0 when empty.
func (s *VisualizationState) MaxZIndex() int {
	max := 0
	for i := range s.Placements {
		if s.Placements[i].ZIndex > max {
			max = s.Placements[i].ZIndex
		}
	}
	return max
}

// Clone returns a deep copy. States are committed by value; callers must never
// alias placement slices between history entries.
func (s *VisualizationState) Clone() VisualizationState {
	out := VisualizationState{
		RenderedImage: append([]byte(nil), s.RenderedImage...),
		Placements:    append([]Placement(nil), s.Placements...),
		Timestamp:     s.Timestamp,
	}
	return out
}

// VisualizationSession is the persisted record of one visualization in
// progress. History is the undo stack; its last element is the current state.
// BaseImage never changes for the life of the session.
type VisualizationSession struct {
	ID        uuid.UUID            `db:"id"         json:"id"`
	AccountID uuid.UUID            `db:"account_id" json:"account_id"`
	BaseImage []byte               `db:"base_image" json:"base_image"`
	History   []VisualizationState `db:"history"    json:"history"`
	RedoStack []VisualizationState `db:"redo_stack" json:"redo_stack"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt time.Time            `db:"updated_at" json:"updated_at"`
}

// Current returns the session's current state. A session always has at least
// its initial state, pushed at creation.
func (v *VisualizationSession) Current() *VisualizationState {
	if len(v.History) == 0 {
		return nil
	}
	return &v.History[len(v.History)-1]
}
