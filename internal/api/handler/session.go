// Package handler contains the HTTP handlers. Each handler is constructed
// against the narrow service interface it needs, so tests can stub services
// without touching the engine.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/sahityapandiri3/omnishop/internal/api/middleware"
	"github.com/sahityapandiri3/omnishop/internal/api/response"
	"github.com/sahityapandiri3/omnishop/internal/visualization"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// SessionService is the slice of the visualization service the session
// handlers depend on.
type SessionService interface {
	CreateSession(ctx context.Context, accountID uuid.UUID, baseImage []byte) (*models.VisualizationSession, error)
	GetSession(ctx context.Context, id, accountID uuid.UUID) (*models.VisualizationSession, error)
	RemoveFurniture(ctx context.Context, sessionID, accountID uuid.UUID) (*models.TransformJob, error)
	AddProduct(ctx context.Context, sessionID, accountID, productID uuid.UUID, hint *visualization.PlacementInput) (*models.TransformJob, error)
	TransformProduct(ctx context.Context, sessionID, accountID, productID uuid.UUID, input *visualization.PlacementInput) (*models.TransformJob, error)
	RemoveProduct(ctx context.Context, sessionID, accountID, productID uuid.UUID) (*models.TransformJob, error)
	ReplaceProduct(ctx context.Context, sessionID, accountID, oldProductID, newProductID uuid.UUID, preserveTransform bool) (*models.TransformJob, error)
	Undo(ctx context.Context, sessionID, accountID uuid.UUID) (*models.VisualizationSession, error)
	Redo(ctx context.Context, sessionID, accountID uuid.UUID) (*models.VisualizationSession, error)
}

// NewCreateSessionHandler handles POST /api/v1/sessions.
func NewCreateSessionHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := mw.GetAccountID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing account", nil)
			return
		}

		var req struct {
			BaseImage []byte `json:"base_image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		session, err := svc.CreateSession(r.Context(), accountID, req.BaseImage)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Created(w, sessionView(session))
	}
}

// NewGetSessionHandler handles GET /api/v1/sessions/{sessionID}.
func NewGetSessionHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}

		session, err := svc.GetSession(r.Context(), sessionID, accountID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, sessionView(session))
	}
}

// NewRemoveFurnitureHandler handles
// POST /api/v1/sessions/{sessionID}/remove-furniture.
func NewRemoveFurnitureHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}

		job, err := svc.RemoveFurniture(r.Context(), sessionID, accountID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, jobView(job))
	}
}

// NewAddProductHandler handles POST /api/v1/sessions/{sessionID}/products.
func NewAddProductHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}

		var req struct {
			ProductID uuid.UUID                     `json:"product_id"`
			Placement *visualization.PlacementInput `json:"placement,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ProductID == uuid.Nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "product_id is required", nil)
			return
		}

		job, err := svc.AddProduct(r.Context(), sessionID, accountID, req.ProductID, req.Placement)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, jobView(job))
	}
}

// NewTransformProductHandler handles
// POST /api/v1/sessions/{sessionID}/products/{productID}/transform.
func NewTransformProductHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}
		productID, ok := pathUUID(w, r, "productID")
		if !ok {
			return
		}

		var input visualization.PlacementInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.TransformProduct(r.Context(), sessionID, accountID, productID, &input)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, jobView(job))
	}
}

// NewRemoveProductHandler handles
// DELETE /api/v1/sessions/{sessionID}/products/{productID}.
func NewRemoveProductHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}
		productID, ok := pathUUID(w, r, "productID")
		if !ok {
			return
		}

		job, err := svc.RemoveProduct(r.Context(), sessionID, accountID, productID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, jobView(job))
	}
}

// NewReplaceProductHandler handles
// POST /api/v1/sessions/{sessionID}/products/{productID}/replace.
func NewReplaceProductHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}
		oldProductID, ok := pathUUID(w, r, "productID")
		if !ok {
			return
		}

		var req struct {
			NewProductID      uuid.UUID `json:"new_product_id"`
			PreserveTransform *bool     `json:"preserve_transform,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.NewProductID == uuid.Nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "new_product_id is required", nil)
			return
		}

		preserve := true
		if req.PreserveTransform != nil {
			preserve = *req.PreserveTransform
		}

		job, err := svc.ReplaceProduct(r.Context(), sessionID, accountID, oldProductID, req.NewProductID, preserve)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, jobView(job))
	}
}

// NewUndoHandler handles POST /api/v1/sessions/{sessionID}/undo.
func NewUndoHandler(svc SessionService) http.HandlerFunc {
	return historyShiftHandler(svc.Undo)
}

// NewRedoHandler handles POST /api/v1/sessions/{sessionID}/redo.
func NewRedoHandler(svc SessionService) http.HandlerFunc {
	return historyShiftHandler(svc.Redo)
}

func historyShiftHandler(shift func(ctx context.Context, sessionID, accountID uuid.UUID) (*models.VisualizationSession, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, sessionID, ok := sessionParams(w, r)
		if !ok {
			return
		}

		session, err := shift(r.Context(), sessionID, accountID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, sessionView(session))
	}
}

func sessionParams(w http.ResponseWriter, r *http.Request) (accountID, sessionID uuid.UUID, ok bool) {
	accountID, found := mw.GetAccountID(r)
	if !found {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing account", nil)
		return uuid.Nil, uuid.Nil, false
	}
	sessionID, ok = pathUUID(w, r, "sessionID")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return accountID, sessionID, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", param+" must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
