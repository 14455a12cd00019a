package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/wander/internal/logger"
)

var noContent = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 60, Now: func() time.Time { return now }})(noContent)

	req := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		r.RemoteAddr = ip + ":1234"
		return serve(h, r)
	}

	assert.Equal(t, http.StatusNoContent, req("10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, req("10.0.0.1").Code)

	rec := req("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, req("10.0.0.2").Code, "buckets are per ip")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, req("10.0.0.1").Code, "one token refilled")
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, false, logger.NewNop())(noContent)

	r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	r.RemoteAddr = "10.1.2.3:80"
	assert.Equal(t, http.StatusNoContent, serve(h, r).Code)

	r.RemoteAddr = "8.8.8.8:80"
	assert.Equal(t, http.StatusForbidden, serve(h, r).Code)

	open := AllowOnlyCIDRS(nil, false, logger.NewNop())(noContent)
	assert.Equal(t, http.StatusNoContent, serve(open, r).Code)
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"wander.example.com", "*.internal.example.com"}, logger.NewNop())(noContent)

	tests := []struct {
		host string
		want int
	}{
		{"wander.example.com", http.StatusNoContent},
		{"wander.example.com:8080", http.StatusNoContent},
		{"ui.internal.example.com", http.StatusNoContent},
		{"internal.example.com", http.StatusForbidden},
		{"evil.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Host = tt.host
			assert.Equal(t, tt.want, serve(h, r).Code)
		})
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:3000"})(noContent)

	r := httptest.NewRequest(http.MethodOptions, "/api/view", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, r)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/view", nil)
	r.Header.Set("Origin", "http://evil.test")
	rec = serve(h, r)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
