package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortnite-checker-api/pkg/apierror"
	"fortnite-checker-api/pkg/uid"
)

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []string{"a"}, 2, 10, 11)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, &Meta{Page: 2, Limit: 10, Total: 11}, body.Meta)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestError_WrappedAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("handler: %w", apierror.NotFound("missing")))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"NOT_FOUND"`)
}

func TestError_PlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, nil, errors.New("secret detail"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestError_EchoesRequestID(t *testing.T) {
	src := apierror.BadRequest("bad input")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(uid.WithRequestID(req.Context(), "rid-42"))

	rec := httptest.NewRecorder()
	Error(rec, req, src)

	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)
	assert.Equal(t, "rid-42", body.Error.RequestID)
	assert.Empty(t, src.RequestID, "shared error value is not modified")

	rec = httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), src)
	assert.NotContains(t, rec.Body.String(), "request_id")
}
