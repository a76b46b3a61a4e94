package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kelabpetani/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("mw-secret")

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", append(handlers, func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "id": actor.ID.String(), "admin": actor.IsAdmin})
	})...)
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newRouter(RequireAuth(secret))
	id := uuid.New()
	token, err := auth.IssueToken(secret, id, false, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer nope").Code)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
}

func TestRequireAuthReadsCookie(t *testing.T) {
	r := newRouter(RequireAuth(secret))
	token, err := auth.IssueToken(secret, uuid.New(), false, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	r := newRouter(OptionalAuth(secret))

	w := get(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	w = get(r, "Bearer broken")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(RequireAuth(secret), RequireAdmin())

	user, err := auth.IssueToken(secret, uuid.New(), false, time.Hour)
	require.NoError(t, err)
	admin, err := auth.IssueToken(secret, uuid.New(), true, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+user).Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+admin).Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	limiter := NewRateLimiter(rdb, nil)
	r := newRouter(limiter.Limit("test", 1, time.Minute))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "").Code)
	}
}

func TestNilRateLimiterPassesThrough(t *testing.T) {
	var limiter *RateLimiter
	r := newRouter(limiter.Limit("test", 1, time.Minute))
	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "").Code)
}
