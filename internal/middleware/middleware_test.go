package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRateLimiter_FailOpenWithoutRedis(t *testing.T) {
	l := NewRateLimiter(nil, 1, time.Minute)
	h := l.Middleware(http.HandlerFunc(okHandler))

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/esewa/success", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestNewRedisClient_EmptyAddr(t *testing.T) {
	require.Nil(t, NewRedisClient("", "", 0))
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRateLimiter_RedisIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	client := NewRedisClient(addr, os.Getenv("REDIS_PASSWORD"), db)
	require.NotNil(t, client)
	defer client.Close()

	limit := 2
	r := mux.NewRouter()
	r.Use(NewRateLimiter(client, limit, 2*time.Second).Middleware)
	r.HandleFunc("/test", okHandler).Methods(http.MethodGet)

	ip := "10.0.0." + strconv.FormatInt(time.Now().UnixNano()%250, 10)
	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < limit; i++ {
		require.Equal(t, http.StatusOK, do())
	}
	require.Equal(t, http.StatusTooManyRequests, do())
}

func TestCallbackToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		header   string
		wantCode int
	}{
		{name: "disabled", token: "", header: "", wantCode: http.StatusOK},
		{name: "match", token: "s3cret", header: "s3cret", wantCode: http.StatusOK},
		{name: "mismatch", token: "s3cret", header: "nope", wantCode: http.StatusUnauthorized},
		{name: "missing", token: "s3cret", header: "", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CallbackToken(tt.token)(http.HandlerFunc(okHandler))
			req := httptest.NewRequest(http.MethodPost, "/esewa/success", nil)
			if tt.header != "" {
				req.Header.Set(CallbackTokenHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, tt.wantCode, rr.Code)
			if tt.wantCode == http.StatusUnauthorized {
				require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
				var body map[string]string
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				require.Equal(t, map[string]string{"error": "Unauthorized callback"}, body)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	require.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", clientIP(req))
}

func TestRequestLogger_PassesStatusThrough(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusTeapot, rr.Code)
}
