package handler

import (
	"errors"
	"net/http"

	"github.com/sahityapandiri3/omnishop/internal/api/response"
	"github.com/sahityapandiri3/omnishop/internal/catalog"
	"github.com/sahityapandiri3/omnishop/internal/render"
	"github.com/sahityapandiri3/omnishop/internal/visualization"
)

// writeServiceError maps service errors onto envelope codes. Expected
// provider failures never reach here: a failed render is a successful job
// poll, not a request error.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *visualization.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Message,
			map[string]string{"field": verr.Field})
	case errors.Is(err, visualization.ErrSessionNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Session not found", nil)
	case errors.Is(err, visualization.ErrPlacementNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Product is not placed in this session", nil)
	case errors.Is(err, catalog.ErrProductNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	case errors.Is(err, render.ErrJobNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
	case errors.Is(err, visualization.ErrConflict):
		response.Error(w, http.StatusConflict, "CONFLICT",
			"Another mutation is in flight for this session; retry after the pending job finishes", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
