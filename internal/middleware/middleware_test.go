package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/config"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"holder": HolderID(c), "role": Role(c)})
}

func serve(t *testing.T, h echo.HandlerFunc, mw []echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/v1/schedules/:id", h, mw...)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	mw := []echo.MiddlewareFunc{JWTAuth(secret), RequireRole(RoleCustomer)}

	tok, err := utils.NewAccessToken(secret, "alice", RoleCustomer, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/schedules/1", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := serve(t, whoami, mw, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"holder":"alice","role":"CUSTOMER"}`, rec.Body.String())

	rec = serve(t, whoami, mw, httptest.NewRequest(http.MethodGet, "/v1/schedules/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := utils.NewAccessToken("other-secret", "alice", RoleCustomer, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/schedules/1", nil)
	req.Header.Set("Authorization", "Bearer "+other.Token)
	assert.Equal(t, http.StatusUnauthorized, serve(t, whoami, mw, req).Code)

	expired, err := utils.NewAccessToken(secret, "alice", RoleCustomer, -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/schedules/1", nil)
	req.Header.Set("Authorization", "Bearer "+expired.Token)
	assert.Equal(t, http.StatusUnauthorized, serve(t, whoami, mw, req).Code)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice", "role": RoleCustomer})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/schedules/1", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, serve(t, whoami, mw, req).Code)

	payment, err := utils.NewAccessToken(secret, "pay-svc", RolePayment, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/schedules/1", nil)
	req.Header.Set("Authorization", "Bearer "+payment.Token)
	assert.Equal(t, http.StatusForbidden, serve(t, whoami, mw, req).Code)
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/schedules/1/holds", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/schedules/:id/holds")
	c.Set(holderKey, "alice")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	assert.Equal(t, "rl:user:alice:route:POST /v1/schedules/:id/holds", rateKey(cfg, c))

	cfg.KeyParts = []string{"ip", "user"}
	c.Set(holderKey, "")
	assert.Equal(t, "rl:ip:10.0.0.7:user:anon", rateKey(cfg, c))
}

func TestBucketTake(t *testing.T) {
	db, mock := redismock.NewClientMock()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	b := &bucket{
		cfg: config.RateLimitConfig{Capacity: 2, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute},
		rdb: db,
		now: func() time.Time { return now },
	}

	mock.ExpectEval(takeTokenLua, []string{"rl:k"}, b.args(now)...).SetVal([]interface{}{int64(1), int64(1), int64(0)})
	v, err := b.take(context.Background(), "rl:k")
	require.NoError(t, err)
	assert.True(t, v.allowed)
	assert.EqualValues(t, 1, v.remaining)

	mock.ExpectEval(takeTokenLua, []string{"rl:k"}, b.args(now)...).SetVal([]interface{}{int64(0), int64(0), int64(1500)})
	v, err = b.take(context.Background(), "rl:k")
	require.NoError(t, err)
	assert.False(t, v.allowed)
	assert.Equal(t, 1500*time.Millisecond, v.retryAfter)

	mock.ExpectEval(takeTokenLua, []string{"rl:k"}, b.args(now)...).SetVal([]interface{}{int64(1)})
	_, err = b.take(context.Background(), "rl:k")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucket_PassesThroughWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	rec := serve(t, ok, []echo.MiddlewareFunc{NewTokenBucket(cfg, nil)}, httptest.NewRequest(http.MethodGet, "/v1/schedules/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// a mock with no expectations fails every command
	db, _ := redismock.NewClientMock()
	rec = serve(t, ok, []echo.MiddlewareFunc{NewTokenBucket(cfg, db)}, httptest.NewRequest(http.MethodGet, "/v1/schedules/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRedisCache(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, VaryQuery: true, Prefix: "catalog"}
	key := cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/schedules/1?x=1", nil))

	db, mock := redismock.NewClientMock()
	calls := 0
	h := func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "fresh")
	}
	mw := []echo.MiddlewareFunc{NewRedisCache(cfg, db)}

	mock.ExpectGet(key).RedisNil()
	rec := serve(t, h, mw, httptest.NewRequest(http.MethodGet, "/v1/schedules/1?x=1", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Equal(t, 1, calls)

	payload, err := json.Marshal(cachedResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"text/plain"}},
		Body:   []byte("cached"),
	})
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))
	rec = serve(t, h, mw, httptest.NewRequest(http.MethodGet, "/v1/schedules/1?x=1", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "cached", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)
}

func TestCacheKey(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "catalog", VaryQuery: true}
	one := cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/schedules/1?x=1", nil))
	assert.NotEqual(t, one, cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/schedules/2?x=1", nil)))
	assert.NotEqual(t, one, cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/schedules/1?x=2", nil)))
	assert.True(t, strings.HasPrefix(one, "catalog:GET:"))

	cfg.VaryQuery = false
	assert.Equal(t,
		cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/schedules/1?x=1", nil)),
		cacheKey(cfg, httptest.NewRequest(http.MethodGet, "/v1/schedules/1?x=2", nil)))
}

func TestBodyRecorderOverflow(t *testing.T) {
	rec := &bodyRecorder{ResponseWriter: httptest.NewRecorder(), limit: 4}
	_, _ = rec.Write([]byte("abc"))
	assert.False(t, rec.overflow)
	_, _ = rec.Write([]byte("de"))
	assert.True(t, rec.overflow)
	assert.Zero(t, rec.body.Len())
}
