package render

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ContentHash derives the cache identity of one transform: the exact base
// image bytes, the operation name, and the operation parameters. Identical
// inputs always hash identically, so a repeated request resolves from cache
// instead of invoking the provider again.
//
// Params are serialized with encoding/json, which emits struct fields in
// declaration order and map keys sorted, so the encoding is canonical.
func ContentHash(baseImage []byte, operation string, params any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode transform params: %w", err)
	}

	h := sha256.New()
	h.Write(baseImage)
	h.Write([]byte{0})
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}
