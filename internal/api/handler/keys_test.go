package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	mw "github.com/sahityapandiri3/omnishop/internal/api/middleware"
	"github.com/sahityapandiri3/omnishop/internal/store"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

// keyStore records API key writes for assertions.
type keyStore struct {
	store.Store
	created *models.APIKey
	keys    []*models.APIKey
	revoked uuid.UUID
	err     error
}

func (s *keyStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	s.created = key
	return s.err
}

func (s *keyStore) ListAPIKeys(ctx context.Context, accountID uuid.UUID) ([]*models.APIKey, error) {
	return s.keys, s.err
}

func (s *keyStore) RevokeAPIKey(ctx context.Context, id, accountID uuid.UUID) error {
	s.revoked = id
	return s.err
}

func mountKeyRoutes(s store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(mw.SetAccountID(req.Context(), uuid.New())))
		})
	})
	r.Post("/api/v1/admin/keys", NewCreateKeyHandler(s))
	r.Get("/api/v1/admin/keys", NewListKeysHandler(s))
	r.Delete("/api/v1/admin/keys/{keyID}", NewRevokeKeyHandler(s))
	return r
}

func TestCreateKeyHandler(t *testing.T) {
	s := &keyStore{}
	h := mountKeyRoutes(s)

	body, _ := json.Marshal(map[string]any{"name": "ci-bot", "scopes": []string{"visualize", "admin"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/keys", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, s.created)
	assert.Equal(t, "ci-bot", s.created.Name)
	assert.Equal(t, []string{"visualize", "admin"}, s.created.Scopes)

	var resp struct {
		Data struct {
			Key       string `json:"key"`
			KeyPrefix string `json:"key_prefix"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.KeyPrefix, 8)
	assert.Equal(t, resp.Data.Key[:8], resp.Data.KeyPrefix)

	// The stored hash matches the raw key returned to the caller.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(s.created.KeyHash), []byte(resp.Data.Key)))
	assert.NotContains(t, rec.Body.String(), s.created.KeyHash)
}

func TestCreateKeyHandler_DefaultScope(t *testing.T) {
	s := &keyStore{}
	h := mountKeyRoutes(s)

	body, _ := json.Marshal(map[string]any{"name": "reader"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/keys", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"visualize"}, s.created.Scopes)
}

func TestCreateKeyHandler_MissingName(t *testing.T) {
	h := mountKeyRoutes(&keyStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/keys", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListKeysHandler_OmitsHashes(t *testing.T) {
	s := &keyStore{keys: []*models.APIKey{{
		ID:        uuid.New(),
		Name:      "ci-bot",
		KeyHash:   "$2a$10$secret-hash",
		KeyPrefix: "abcd1234",
		Scopes:    []string{"visualize"},
	}}}
	h := mountKeyRoutes(s)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/keys", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "abcd1234")
	assert.NotContains(t, rec.Body.String(), "secret-hash")
}

func TestRevokeKeyHandler(t *testing.T) {
	s := &keyStore{}
	h := mountKeyRoutes(s)
	keyID := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/keys/"+keyID.String(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, keyID, s.revoked)
}

func TestRevokeKeyHandler_NotFound(t *testing.T) {
	h := mountKeyRoutes(&keyStore{err: store.ErrNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/keys/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
