package imagegen

import (
	"errors"

	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// Retryable reports whether err is worth another attempt. The sentinel
// taxonomy lives in pkg/models next to the ImageProvider interface; only
// ErrInvalidInput is final.
func Retryable(err error) bool {
	return !errors.Is(err, models.ErrInvalidInput)
}
