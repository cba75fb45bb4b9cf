package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gagikpog/meme-navigator/internal/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisCallCounter counts commands the limiter issues. The client points at
// an unreachable address; the limiter fails open, so the counter is the only
// observable difference between the anonymous and token paths.
type redisCallCounter struct {
	calls int32
}

func (h *redisCallCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *redisCallCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		atomic.AddInt32(&h.calls, 1)
		return next(ctx, cmd)
	}
}

func (h *redisCallCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func newRateLimitRouter() (*gin.Engine, *redisCallCounter) {
	counter := &redisCallCounter{}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(counter)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(client))
	r.GET("/memes", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, counter
}

func TestRateLimitSkipsValidTokens(t *testing.T) {
	jwt.SetSecret("ratelimit-test-secret")
	r, counter := newRateLimitRouter()

	token, err := jwt.Sign(jwt.Identity{UserID: "u-1", SessionID: "s-1", Role: models.RoleUser, DeviceID: "d-1"}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/memes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, atomic.LoadInt32(&counter.calls), "token-bearing requests must not hit the limiter")
}

func TestRateLimitCountsAnonymousRequests(t *testing.T) {
	jwt.SetSecret("ratelimit-test-secret")
	r, counter := newRateLimitRouter()

	req := httptest.NewRequest(http.MethodGet, "/memes", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "limiter fails open when redis is down")
	assert.Positive(t, atomic.LoadInt32(&counter.calls))
}

func TestRateLimitTreatsGarbageTokenAsAnonymous(t *testing.T) {
	jwt.SetSecret("ratelimit-test-secret")
	r, counter := newRateLimitRouter()

	req := httptest.NewRequest(http.MethodGet, "/memes", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Positive(t, atomic.LoadInt32(&counter.calls))
}
