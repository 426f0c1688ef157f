package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/raisket/audittrail/internal/config"
)

func authRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/events", AuthMiddleware(cfg), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	router.POST("/admin/reload", AdminMiddleware(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doRequest(router *gin.Engine, path string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddlewareDisabledPassesThrough(t *testing.T) {
	router := authRouter(&config.Config{})
	assert.Equal(t, http.StatusAccepted, doRequest(router, "/events", nil))
}

func TestAuthMiddlewareEnforcesKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.RequireAPIKey = true
	cfg.Auth.APIKey = "good-key"
	router := authRouter(cfg)

	assert.Equal(t, http.StatusUnauthorized, doRequest(router, "/events", nil))
	assert.Equal(t, http.StatusUnauthorized, doRequest(router, "/events",
		map[string]string{HeaderAuditKey: "bad-key"}))
	assert.Equal(t, http.StatusAccepted, doRequest(router, "/events",
		map[string]string{HeaderAuditKey: "good-key"}))
}

func TestAdminMiddlewareDisabledWithoutKey(t *testing.T) {
	router := authRouter(&config.Config{})
	assert.Equal(t, http.StatusForbidden, doRequest(router, "/admin/reload", nil))
}

func TestAdminMiddlewareEnforcesAdminKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.AdminKey = "admin-key"
	router := authRouter(cfg)

	assert.Equal(t, http.StatusUnauthorized, doRequest(router, "/admin/reload", nil))
	assert.Equal(t, http.StatusOK, doRequest(router, "/admin/reload",
		map[string]string{HeaderAdminKey: "admin-key"}))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.RateLimit = 1
	cfg.Server.RateBurst = 2

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/events", RateLimitMiddleware(cfg), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	headers := map[string]string{HeaderAuditKey: "client-a"}
	assert.Equal(t, http.StatusAccepted, doRequest(router, "/events", headers))
	assert.Equal(t, http.StatusAccepted, doRequest(router, "/events", headers))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "/events", headers))

	// A different key has its own bucket.
	assert.Equal(t, http.StatusAccepted, doRequest(router, "/events",
		map[string]string{HeaderAuditKey: "client-b"}))
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	router := gin.New()
	router.POST("/events", RateLimitMiddleware(&config.Config{}), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusAccepted, doRequest(router, "/events", nil))
	}
}
