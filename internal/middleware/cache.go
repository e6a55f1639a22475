package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"   // middleware signature
	"github.com/redis/go-redis/v9" // cache storage

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/config"
)

// cachedResponse is the value stored under a cache key.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

// bodyRecorder forwards writes to the client and keeps a copy of the
// first limit bytes.  overflow is set once the body outgrows limit.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.body.Len()+len(b) > r.limit {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cacheKey hashes the concrete request path, so /v1/schedules/1 and
// /v1/schedules/2 never share an entry even though they share a route.
func cacheKey(cfg config.CacheConfig, r *http.Request) string {
	target := r.URL.Path
	if cfg.VaryQuery && r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	sum := sha1.Sum([]byte(target))
	return cfg.Prefix + ":" + r.Method + ":" + hex.EncodeToString(sum[:])
}

func replay(c echo.Context, cr cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range cr.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, "X-Cache") {
			continue
		}
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(cr.Status)
	_, err := c.Response().Write(cr.Body)
	return err
}

// NewRedisCache serves repeated catalog reads from Redis.  Only 200
// responses are stored, X-Cache reports HIT or MISS, and any Redis error
// falls back to calling the handler.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !cfg.Methods[req.Method] {
				return next(c)
			}
			ctx := req.Context()
			key := cacheKey(cfg, req)

			// Serve a stored copy when there is one.  A miss, a Redis error
			// or an undecodable entry all fall through to the handler.
			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cr cachedResponse
				if json.Unmarshal(raw, &cr) == nil && cr.Status != 0 {
					return replay(c, cr)
				}
			}

			// Record the body while it streams to the client.
			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			// Errors and oversized bodies are never stored.
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}
			raw, err := json.Marshal(cachedResponse{
				Status: rec.status,
				Header: c.Response().Header().Clone(),
				Body:   rec.body.Bytes(),
			})
			if err != nil {
				return nil
			}
			// The client may already be gone; store anyway.
			if err := rdb.Set(context.WithoutCancel(ctx), key, raw, cfg.TTL).Err(); err != nil {
				c.Logger().Warnf("cache: store %s: %v", key, err)
			}
			return nil
		}
	}
}
