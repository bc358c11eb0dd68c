package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doease/doease/internal/config"
	"github.com/doease/doease/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRouter(boot *session.Bootstrap) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireUser(boot), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
	})
	return router
}

func TestRequireUserWhileBootstrapping(t *testing.T) {
	// Never started, so the snapshot stays in its loading state.
	boot := session.New(nil, config.BootstrapConfig{}, zap.NewNop())
	router := newTestRouter(boot)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequireUserWhenSignedOut(t *testing.T) {
	cfgErr := &config.ConfigurationError{Reason: "missing settings"}
	boot := session.NewUnconfigured(cfgErr, zap.NewNop())
	router := newTestRouter(boot)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied")
	router.ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied", rec.Header().Get(RequestIDHeader))
}
