package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-jwt-secret")
	os.Setenv("CRON_SECRET", "test-cron-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestRateLimitMiddleware_AllowsThenThrottles(t *testing.T) {
	r := gin.New()
	r.GET("/ping", RateLimitMiddleware(), func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})

	hit := func() int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.1.2.3:5000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// burst capacity is half the per-minute budget
	throttled := false
	for i := 0; i < 60; i++ {
		if hit() == http.StatusTooManyRequests {
			throttled = true
			break
		}
	}
	assert.True(t, throttled, "sustained burst from one IP should be throttled")

	// a different IP has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.9.9.9:5000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
