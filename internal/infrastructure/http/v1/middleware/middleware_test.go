package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/core/apperror"
)

func engine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), Trace(), ErrorHandler())
	return r
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestPanicRendersInternalError(t *testing.T) {
	r := engine()
	r.GET("/boom", func(*gin.Context) { panic("nil map") })

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, body["code"])
	assert.NotContains(t, w.Body.String(), "nil map")
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, w.Header().Get(HeaderRequestID), details["request_id"])
}

func TestAppErrorKeepsStatusAndDetails(t *testing.T) {
	r := engine()
	r.POST("/decide", func(c *gin.Context) {
		_ = c.Error(apperror.NewInvalidState("transfer", "t1", "approved", "decide"))
	})

	w, body := serve(r, httptest.NewRequest(http.MethodPost, "/decide", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeInvalidState, body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, "approved", details["state"])
}

func TestPlainErrorHidesCause(t *testing.T) {
	r := engine()
	r.GET("/db", func(c *gin.Context) {
		_ = c.Error(errors.New("password authentication failed"))
	})

	w, body := serve(r, httptest.NewRequest(http.MethodGet, "/db", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body["message"])
	assert.NotContains(t, w.Body.String(), "password")
}

func TestTraceEchoesClientRequestID(t *testing.T) {
	r := engine()
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "client-7")
	w, _ := serve(r, req)

	assert.Equal(t, "client-7", w.Header().Get(HeaderRequestID))
	assert.Len(t, w.Header().Get(HeaderTraceID), 32)
}
