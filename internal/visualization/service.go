// Package visualization implements sessions and their mutation operations:
// placing, transforming, removing and replacing catalog products over a room
// photo, with linear undo/redo history.
//
// Mutations are linearized per session. A mutation that triggers a render
// holds the session until its job reaches a terminal status; competing
// mutations in that window get ErrConflict. The candidate state is committed
// to history only when the render succeeds.
package visualization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahityapandiri3/omnishop/internal/catalog"
	"github.com/sahityapandiri3/omnishop/internal/render"
	"github.com/sahityapandiri3/omnishop/internal/store"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// Default placement for a product added without a hint: centered in the room,
// unscaled, unrotated. Coordinates are fractions of the base image dimensions.
const (
	defaultX     = 0.5
	defaultY     = 0.5
	defaultScale = 1.0
)

// JobEngine is the slice of the render engine the mutator needs.
type JobEngine interface {
	Submit(ctx context.Context, req render.SubmitRequest) (*models.TransformJob, error)
}

// PlacementInput carries the client-supplied transform for a placement. Nil
// fields keep their current (or default) values.
type PlacementInput struct {
	X               *float64 `json:"x,omitempty"`
	Y               *float64 `json:"y,omitempty"`
	Scale           *float64 `json:"scale,omitempty"`
	RotationDegrees *float64 `json:"rotation_degrees,omitempty"`
}

// renderParams is the canonical parameter block hashed together with the
// input image to identify a transform. It is also what the provider receives,
// so cache identity and render input cannot drift apart.
type renderParams struct {
	Products     []models.ProductReference `json:"products"`
	Instructions string                    `json:"instructions,omitempty"`
}

// Service is the session mutator.
type Service struct {
	store   store.Store
	catalog catalog.Catalog
	engine  JobEngine
	logger  *slog.Logger

	mu   sync.Mutex
	busy map[uuid.UUID]struct{}
}

func NewService(s store.Store, c catalog.Catalog, e JobEngine, logger *slog.Logger) *Service {
	return &Service{
		store:   s,
		catalog: c,
		engine:  e,
		logger:  logger,
		busy:    make(map[uuid.UUID]struct{}),
	}
}

// CreateSession starts a new session from a room photo. The initial state is
// the untouched base image with no placements.
func (s *Service) CreateSession(ctx context.Context, accountID uuid.UUID, baseImage []byte) (*models.VisualizationSession, error) {
	if len(baseImage) == 0 {
		return nil, validationErrorf("base_image", "must not be empty")
	}

	now := time.Now().UTC()
	session := &models.VisualizationSession{
		ID:        uuid.New(),
		AccountID: accountID,
		BaseImage: baseImage,
		History: []models.VisualizationState{{
			RenderedImage: baseImage,
			Timestamp:     now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("visualization session created", "session_id", session.ID, "account_id", accountID)
	return session, nil
}

// GetSession returns the session with its full history.
func (s *Service) GetSession(ctx context.Context, id, accountID uuid.UUID) (*models.VisualizationSession, error) {
	session, err := s.store.GetSession(ctx, id, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

// RemoveFurniture renders the room with its photographed furniture cleared
// out, leaving placed catalog products in the scene. Running it twice on the
// same state produces the same content hash, so the second submission
// resolves from the render cache.
func (s *Service) RemoveFurniture(ctx context.Context, sessionID, accountID uuid.UUID) (*models.TransformJob, error) {
	return s.mutate(ctx, sessionID, accountID, models.OpRemoveFurniture, func(current *models.VisualizationState) ([]models.Placement, renderParams, error) {
		candidate := append([]models.Placement(nil), current.Placements...)
		params := renderParams{
			Instructions: "Remove the existing furniture from the room and reconstruct the floors and walls behind it.",
		}
		return candidate, params, nil
	})
}

// AddProduct places a catalog product into the session and enqueues a render.
// Without a placement hint the product lands centered at scale 1. The new
// placement always takes the top stacking position.
func (s *Service) AddProduct(ctx context.Context, sessionID, accountID, productID uuid.UUID, hint *PlacementInput) (*models.TransformJob, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, validationErrorf("product_id", "unknown product %s", productID)
	}
	if err != nil {
		return nil, err
	}

	placement := models.Placement{
		ProductID: productID,
		X:         defaultX,
		Y:         defaultY,
		Scale:     defaultScale,
	}
	if err := applyInput(&placement, hint); err != nil {
		return nil, err
	}

	return s.mutate(ctx, sessionID, accountID, models.OpAddProduct, func(current *models.VisualizationState) ([]models.Placement, renderParams, error) {
		if current.FindPlacement(productID) != nil {
			return nil, renderParams{}, validationErrorf("product_id", "product %s is already placed", productID)
		}
		placement.ZIndex = current.MaxZIndex() + 1
		candidate := append(append([]models.Placement(nil), current.Placements...), placement)
		params := renderParams{
			Products:     []models.ProductReference{productRef(product, placement)},
			Instructions: fmt.Sprintf("Add %q to the room.", product.Name),
		}
		return candidate, params, nil
	})
}

// TransformProduct moves, resizes or rotates an existing placement.
func (s *Service) TransformProduct(ctx context.Context, sessionID, accountID, productID uuid.UUID, input *PlacementInput) (*models.TransformJob, error) {
	if input == nil || (input.X == nil && input.Y == nil && input.Scale == nil && input.RotationDegrees == nil) {
		return nil, validationErrorf("transform", "at least one of x, y, scale, rotation_degrees is required")
	}

	return s.mutate(ctx, sessionID, accountID, models.OpTransformProduct, func(current *models.VisualizationState) ([]models.Placement, renderParams, error) {
		existing := current.FindPlacement(productID)
		if existing == nil {
			return nil, renderParams{}, ErrPlacementNotFound
		}

		updated := *existing
		if err := applyInput(&updated, input); err != nil {
			return nil, renderParams{}, err
		}

		candidate := append([]models.Placement(nil), current.Placements...)
		for i := range candidate {
			if candidate[i].ProductID == productID {
				candidate[i] = updated
			}
		}

		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, renderParams{}, err
		}
		params := renderParams{
			Products:     []models.ProductReference{productRef(product, updated)},
			Instructions: fmt.Sprintf("Reposition %q as specified.", product.Name),
		}
		return candidate, params, nil
	})
}

// RemoveProduct deletes a placement. The remaining placements keep their
// z-indices so stacking order stays stable.
func (s *Service) RemoveProduct(ctx context.Context, sessionID, accountID, productID uuid.UUID) (*models.TransformJob, error) {
	return s.mutate(ctx, sessionID, accountID, models.OpRemoveProduct, func(current *models.VisualizationState) ([]models.Placement, renderParams, error) {
		existing := current.FindPlacement(productID)
		if existing == nil {
			return nil, renderParams{}, ErrPlacementNotFound
		}

		candidate := make([]models.Placement, 0, len(current.Placements)-1)
		for _, p := range current.Placements {
			if p.ProductID != productID {
				candidate = append(candidate, p)
			}
		}

		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, renderParams{}, err
		}
		params := renderParams{
			Products:     []models.ProductReference{productRef(product, *existing)},
			Instructions: fmt.Sprintf("Remove %q from the room and fill in the background naturally.", product.Name),
		}
		return candidate, params, nil
	})
}

// ReplaceProduct swaps one placed product for another catalog product. With
// preserveTransform the new placement copies position, scale, rotation and
// z-index verbatim; otherwise the new product lands at the default placement
// on top of the stack.
func (s *Service) ReplaceProduct(ctx context.Context, sessionID, accountID, oldProductID, newProductID uuid.UUID, preserveTransform bool) (*models.TransformJob, error) {
	newProduct, err := s.catalog.GetProduct(ctx, newProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, validationErrorf("new_product_id", "unknown product %s", newProductID)
	}
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, sessionID, accountID, models.OpReplaceProduct, func(current *models.VisualizationState) ([]models.Placement, renderParams, error) {
		existing := current.FindPlacement(oldProductID)
		if existing == nil {
			return nil, renderParams{}, ErrPlacementNotFound
		}
		if current.FindPlacement(newProductID) != nil {
			return nil, renderParams{}, validationErrorf("new_product_id", "product %s is already placed", newProductID)
		}

		replacement := models.Placement{ProductID: newProductID}
		if preserveTransform {
			replacement.X = existing.X
			replacement.Y = existing.Y
			replacement.Scale = existing.Scale
			replacement.RotationDegrees = existing.RotationDegrees
			replacement.ZIndex = existing.ZIndex
		} else {
			replacement.X = defaultX
			replacement.Y = defaultY
			replacement.Scale = defaultScale
			replacement.ZIndex = current.MaxZIndex() + 1
		}

		candidate := append([]models.Placement(nil), current.Placements...)
		for i := range candidate {
			if candidate[i].ProductID == oldProductID {
				candidate[i] = replacement
			}
		}

		oldProduct, err := s.catalog.GetProduct(ctx, oldProductID)
		if err != nil {
			return nil, renderParams{}, err
		}
		params := renderParams{
			Products: []models.ProductReference{
				productRef(oldProduct, *existing),
				productRef(newProduct, replacement),
			},
			Instructions: fmt.Sprintf("Replace %q with %q.", oldProduct.Name, newProduct.Name),
		}
		return candidate, params, nil
	})
}

// Undo reverts the latest committed mutation. Undoing past the initial state
// is a no-op. Undo is synchronous: the previous state was already rendered.
func (s *Service) Undo(ctx context.Context, sessionID, accountID uuid.UUID) (*models.VisualizationSession, error) {
	return s.shiftHistory(ctx, sessionID, accountID, func(session *models.VisualizationSession) bool {
		if len(session.History) <= 1 {
			return false
		}
		last := len(session.History) - 1
		session.RedoStack = append(session.RedoStack, session.History[last])
		session.History = session.History[:last]
		return true
	})
}

// Redo re-applies the most recently undone mutation, if any.
func (s *Service) Redo(ctx context.Context, sessionID, accountID uuid.UUID) (*models.VisualizationSession, error) {
	return s.shiftHistory(ctx, sessionID, accountID, func(session *models.VisualizationSession) bool {
		if len(session.RedoStack) == 0 {
			return false
		}
		last := len(session.RedoStack) - 1
		session.History = append(session.History, session.RedoStack[last])
		session.RedoStack = session.RedoStack[:last]
		return true
	})
}

// mutate runs one render-triggering operation: lock the session, compute the
// candidate state from the current one, enqueue the render job, and commit
// the candidate with the rendered image when the job completes. The session
// stays locked until the job reaches a terminal status, which is what makes
// mutations linearizable.
func (s *Service) mutate(ctx context.Context, sessionID, accountID uuid.UUID, operation string,
	compute func(current *models.VisualizationState) ([]models.Placement, renderParams, error)) (*models.TransformJob, error) {

	if !s.tryLock(sessionID) {
		return nil, ErrConflict
	}

	locked := true
	defer func() {
		if locked {
			s.unlock(sessionID)
		}
	}()

	session, err := s.GetSession(ctx, sessionID, accountID)
	if err != nil {
		return nil, err
	}
	current := session.Current()

	candidate, params, err := compute(current)
	if err != nil {
		return nil, err
	}

	input := current.RenderedImage
	hash, err := render.ContentHash(input, operation, params)
	if err != nil {
		return nil, err
	}

	job, err := s.engine.Submit(ctx, render.SubmitRequest{
		SessionID:   sessionID,
		Operation:   operation,
		ContentHash: hash,
		Fallback:    input,
		GenerateRequest: models.GenerateRequest{
			BaseImage:    input,
			Operation:    operation,
			Products:     params.Products,
			Instructions: params.Instructions,
		},
		OnSuccess: s.commitFunc(sessionID, accountID, candidate),
		OnDone: func(job *models.TransformJob) {
			s.unlock(sessionID)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("submit %s job: %w", operation, err)
	}

	// The engine now owns the lock release via OnDone.
	locked = false
	return job, nil
}

// commitFunc returns the closure the engine invokes when the render succeeds.
// It runs while the session lock is still held, so the read-modify-write over
// the history is not racy.
func (s *Service) commitFunc(sessionID, accountID uuid.UUID, candidate []models.Placement) render.CommitFunc {
	return func(ctx context.Context, result []byte) error {
		session, err := s.GetSession(ctx, sessionID, accountID)
		if err != nil {
			return err
		}

		session.History = append(session.History, models.VisualizationState{
			RenderedImage: append([]byte(nil), result...),
			Placements:    candidate,
			Timestamp:     time.Now().UTC(),
		})
		session.RedoStack = nil
		session.UpdatedAt = time.Now().UTC()

		if err := s.store.UpdateSessionHistory(ctx, session); err != nil {
			return fmt.Errorf("commit session state: %w", err)
		}
		return nil
	}
}

func (s *Service) shiftHistory(ctx context.Context, sessionID, accountID uuid.UUID, shift func(*models.VisualizationSession) bool) (*models.VisualizationSession, error) {
	if !s.tryLock(sessionID) {
		return nil, ErrConflict
	}
	defer s.unlock(sessionID)

	session, err := s.GetSession(ctx, sessionID, accountID)
	if err != nil {
		return nil, err
	}

	if !shift(session) {
		return session, nil
	}

	session.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateSessionHistory(ctx, session); err != nil {
		return nil, fmt.Errorf("persist history shift: %w", err)
	}
	return session, nil
}

func (s *Service) tryLock(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.busy[sessionID]; held {
		return false
	}
	s.busy[sessionID] = struct{}{}
	return true
}

func (s *Service) unlock(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, sessionID)
}

// applyInput overlays non-nil input fields onto p and validates the result.
func applyInput(p *models.Placement, input *PlacementInput) error {
	if input == nil {
		return nil
	}
	if input.X != nil {
		p.X = *input.X
	}
	if input.Y != nil {
		p.Y = *input.Y
	}
	if input.Scale != nil {
		p.Scale = *input.Scale
	}
	if input.RotationDegrees != nil {
		p.RotationDegrees = *input.RotationDegrees
	}

	if p.Scale < models.MinScale || p.Scale > models.MaxScale {
		return validationErrorf("scale", "must be between %g and %g, got %g", models.MinScale, models.MaxScale, p.Scale)
	}
	if p.RotationDegrees < models.MinRotation || p.RotationDegrees > models.MaxRotation {
		return validationErrorf("rotation_degrees", "must be between %g and %g, got %g", models.MinRotation, models.MaxRotation, p.RotationDegrees)
	}
	return nil
}

func productRef(p *models.Product, placement models.Placement) models.ProductReference {
	return models.ProductReference{
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		Placement: placement,
	}
}
