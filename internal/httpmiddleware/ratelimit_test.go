package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_Refill(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"), "buckets are per key")

	now = now.Add(5 * time.Second)
	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"), "refill is capped at capacity")
	assert.False(t, l.allow("a"))
}

func TestGinMiddleware_KeysByStation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewSimpleTokenBucket(1, 30)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("station", c.GetHeader("X-Station"))
		c.Next()
	})
	r.Use(l.GinMiddleware(ByStation(func(c *gin.Context) string { return c.GetString("station") })))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(station string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Station", station)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, do("gate-1").Code)
	limited := do("gate-1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "2", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, do("gate-2").Code)
	assert.Equal(t, http.StatusNoContent, do("").Code)
}
