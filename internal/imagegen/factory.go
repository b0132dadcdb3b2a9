// Package imagegen constructs image-generation providers and classifies
// their errors. The sentinel taxonomy itself lives in pkg/models next to the
// ImageProvider interface so providers can wrap it without importing this
// package.
package imagegen

import (
	"fmt"

	"github.com/sahityapandiri3/omnishop/internal/config"
	"github.com/sahityapandiri3/omnishop/internal/imagegen/google"
	"github.com/sahityapandiri3/omnishop/internal/imagegen/mock"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// NewProvider constructs the appropriate image provider based on config.
// Called once at server startup.
func NewProvider(cfg config.ImageGenConfig) (models.ImageProvider, error) {
	switch cfg.Provider {
	case "google":
		return google.NewProvider(cfg.Google), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q: must be one of google, mock", cfg.Provider)
	}
}
