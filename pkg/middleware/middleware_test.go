package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "storefront-support/backend/pkg/errors"
	"storefront-support/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Code
}

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(logger.Discard(), RateLimiterOptions{
		Limit: 0.001,
		Burst: 2,
		KeyFunc: func(c *gin.Context) string {
			return c.GetHeader("X-Client")
		},
	})

	r := gin.New()
	r.Use(apperrors.ErrorHandler(), rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("a").Code)
	assert.Equal(t, http.StatusOK, do("a").Code)

	w := do("a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperrors.CodeRateLimitExceeded, errorCode(t, w))
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("b").Code)
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(logger.Discard(), RateLimiterOptions{Limit: 1, Burst: 1, ExpiryDuration: time.Minute})
	rl.getLimiter("old")

	assert.Zero(t, rl.evict(time.Now()))
	assert.Equal(t, 1, rl.evict(time.Now().Add(2*time.Minute)))
}

func TestOriginPolicy(t *testing.T) {
	p := NewOriginPolicy("http://localhost:5173", "https://shop.example.com/", "")

	assert.True(t, p.Allowed("http://localhost:5173"))
	assert.True(t, p.Allowed("https://shop.example.com"))
	assert.True(t, p.Allowed("https://preview-123.vercel.app"))
	assert.False(t, p.Allowed("https://evil.example.com"))
	assert.False(t, p.Allowed("https://vercel.app.evil.com"))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORS(NewOriginPolicy("http://localhost:5173")))
	r.POST("/chat/message", func(c *gin.Context) { c.Status(http.StatusOK) })

	pre := httptest.NewRequest(http.MethodOptions, "/chat/message", nil)
	pre.Header.Set("Origin", "http://localhost:5173")
	pre.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, pre)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	bad := httptest.NewRequest(http.MethodPost, "/chat/message", nil)
	bad.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, bad)
	assert.Equal(t, http.StatusForbidden, w.Code)

	noOrigin := httptest.NewRequest(http.MethodPost, "/chat/message", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, noOrigin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(apperrors.ErrorHandler(), BodyLimit(16))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			if IsBodyTooLarge(err) {
				_ = c.Error(PayloadTooLarge(16))
				return
			}
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, apperrors.CodePayloadTooLarge, errorCode(t, w))

	// unknown length, cut off while reading
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader(strings.Repeat("x", 64))))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRejectionsWriteEnvelopeWithoutErrorHandler(t *testing.T) {
	rl := NewRateLimiter(logger.Discard(), RateLimiterOptions{
		Limit:   0.001,
		Burst:   1,
		KeyFunc: func(*gin.Context) string { return "same" },
	})

	r := gin.New()
	// error handler last, so it never sees aborted requests
	r.Use(BodyLimit(16), rl.Middleware(), apperrors.ErrorHandler())
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, apperrors.CodePayloadTooLarge, errorCode(t, w))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperrors.CodeRateLimitExceeded, errorCode(t, w))
}

func TestTracingPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Tracing())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
