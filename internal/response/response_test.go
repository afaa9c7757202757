package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusCreated, map[string]string{"id": "x"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)
	assert.Equal(t, map[string]any{"id": "x"}, body.Data)
	assert.NotEmpty(t, body.Timestamp)
}

func TestRespondStatusError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondStatusError(rec, http.StatusTooManyRequests, -9, "rate limited")

	body := decode(t, rec)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, http.StatusTooManyRequests, body.Error.Code)
	assert.Equal(t, int32(-9), body.Error.Status)
	assert.Equal(t, "rate limited", body.Error.Message)
}

func TestRespondErrorOmitsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusNotFound, "route not found")

	assert.NotContains(t, rec.Body.String(), `"status"`)
	assert.NotContains(t, rec.Body.String(), `"data"`)
}

func TestRespondRaw(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondRaw(rec, http.StatusOK, WebhookResponse{Message: "accepted", MessageID: "abc"})

	var got WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "abc", got.MessageID)
	assert.NotContains(t, rec.Body.String(), "success")
}
