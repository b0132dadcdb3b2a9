package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, "ok", body["data"].(map[string]any)["status"])
}

func TestCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAccepted(t *testing.T) {
	rec := httptest.NewRecorder()
	Accepted(rec, map[string]string{"job_id": "abc"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "abc", body["data"].(map[string]any)["job_id"])
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestCollection(t *testing.T) {
	rec := httptest.NewRecorder()
	Collection(rec, []string{"a", "b"}, PaginationMeta{Page: 1, Limit: 20, Total: 42, HasNext: true})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(42), meta["total"])
	assert.Equal(t, true, meta["has_next"])
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusConflict, "CONFLICT", "session is busy", map[string]string{"session_id": "x"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "CONFLICT", errBody["code"])
	assert.Equal(t, "session is busy", errBody["message"])
	assert.NotNil(t, errBody["details"])
}

func TestError_OmitsEmptyDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "NOT_FOUND", "no such job", nil)

	body := decode(t, rec)
	errBody := body["error"].(map[string]any)
	_, hasDetails := errBody["details"]
	assert.False(t, hasDetails)
}
