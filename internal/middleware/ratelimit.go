package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	redis "github.com/redis/go-redis/v9"

	"github.com/markjakearzadon/esewa-gobackend.git/internal/logger"
	"github.com/markjakearzadon/esewa-gobackend.git/internal/metrics"
)

// RateLimiter is a fixed-window limiter backed by Redis INCR/EXPIRE.
// Key format: rl:<window_seconds>:<client_ip>.
// With no Redis client, or on a Redis error, requests are allowed.
type RateLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

// NewRedisClient returns nil when addr is empty or the server does not answer a ping.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

func NewRateLimiter(client *redis.Client, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, maxRequests: maxRequests, window: window}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		route := routeTemplate(r)
		key := "rl:" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + clientIP(r)

		val, err := l.client.Incr(r.Context(), key).Result()
		if err != nil {
			w.Header().Set("X-RateLimit-Error", "redis-error")
			next.ServeHTTP(w, r)
			return
		}
		if val == 1 {
			l.client.Expire(r.Context(), key, l.window)
		}

		if val > int64(l.maxRequests) {
			metrics.RLBlocked.WithLabelValues(route).Inc()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}

		metrics.RLRequests.WithLabelValues(route).Inc()
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, then the connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
