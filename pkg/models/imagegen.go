package models

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Provider error taxonomy. Implementations wrap one of these sentinels so the
// render executor can decide whether a failed attempt is worth retrying.
var (
	// ErrProviderUnavailable marks transient failures (connection refused,
	// 429, 5xx). Retryable.
	ErrProviderUnavailable = errors.New("image provider unavailable")
	// ErrGenerationTimeout marks an attempt that exceeded its wall-clock
	// budget. Retryable.
	ErrGenerationTimeout = errors.New("image generation timeout")
	// ErrInvalidInput marks a request the provider rejected as malformed.
	// Not retryable: the same input will fail the same way.
	ErrInvalidInput = errors.New("image provider rejected input")
	// ErrInvalidResponse marks a 2xx response the client could not decode.
	// Retryable.
	ErrInvalidResponse = errors.New("image provider returned invalid response")
)

// ImageProvider is the interface every image-generation integration must
// implement. Callers inject this interface rather than a concrete provider.
// The engine decides when to call it, how many times, and what to do when it
// fails; the provider's internals are opaque.
type ImageProvider interface {
	// Generate renders the requested transform over the base image and returns
	// the resulting image bytes.
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
	// Name returns the provider identifier (e.g., "google", "mock").
	Name() string
}

// GenerateRequest is the input to one provider invocation.
type GenerateRequest struct {
	BaseImage    []byte
	Operation    string
	Products     []ProductReference
	Instructions string
}

// ProductReference carries the product context the provider needs to render a
// placement.
type ProductReference struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	Placement Placement `json:"placement"`
}
