package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "BAD_REQUEST", errorCode(http.StatusBadRequest))
	assert.Equal(t, "PAYMENT_REQUIRED", errorCode(http.StatusPaymentRequired))
	assert.Equal(t, "TOO_MANY_REQUESTS", errorCode(http.StatusTooManyRequests))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", errorCode(http.StatusInternalServerError))
	assert.Equal(t, "ERROR", errorCode(599))
}

func TestNewMeta(t *testing.T) {
	assert.Equal(t, int64(3), NewMeta(1, 10, 21).TotalPages)
	assert.Equal(t, int64(2), NewMeta(1, 10, 20).TotalPages)
	assert.Equal(t, int64(0), NewMeta(1, 10, 0).TotalPages)
}

func TestErrorResponseEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorResponse(c, http.StatusNotFound, "Client not found", nil)

	var body APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Equal(t, "Client not found", body.Error.Message)
}
