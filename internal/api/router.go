// Package api wires the HTTP surface: router, middleware stack, handlers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mw "github.com/sahityapandiri3/omnishop/internal/api/middleware"
	"github.com/sahityapandiri3/omnishop/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateSessionHandler    http.HandlerFunc
	GetSessionHandler       http.HandlerFunc
	RemoveFurnitureHandler  http.HandlerFunc
	AddProductHandler       http.HandlerFunc
	TransformProductHandler http.HandlerFunc
	RemoveProductHandler    http.HandlerFunc
	ReplaceProductHandler   http.HandlerFunc
	UndoHandler             http.HandlerFunc
	RedoHandler             http.HandlerFunc

	PollJobHandler http.HandlerFunc

	ListProductsHandler http.HandlerFunc
	GetProductHandler   http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/sessions", orNotImplemented(deps.CreateSessionHandler))
		r.Get("/api/v1/sessions/{sessionID}", orNotImplemented(deps.GetSessionHandler))
		r.Post("/api/v1/sessions/{sessionID}/remove-furniture", orNotImplemented(deps.RemoveFurnitureHandler))
		r.Post("/api/v1/sessions/{sessionID}/products", orNotImplemented(deps.AddProductHandler))
		r.Post("/api/v1/sessions/{sessionID}/products/{productID}/transform", orNotImplemented(deps.TransformProductHandler))
		r.Delete("/api/v1/sessions/{sessionID}/products/{productID}", orNotImplemented(deps.RemoveProductHandler))
		r.Post("/api/v1/sessions/{sessionID}/products/{productID}/replace", orNotImplemented(deps.ReplaceProductHandler))
		r.Post("/api/v1/sessions/{sessionID}/undo", orNotImplemented(deps.UndoHandler))
		r.Post("/api/v1/sessions/{sessionID}/redo", orNotImplemented(deps.RedoHandler))

		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.PollJobHandler))

		r.Get("/api/v1/products", orNotImplemented(deps.ListProductsHandler))
		r.Get("/api/v1/products/{productID}", orNotImplemented(deps.GetProductHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
