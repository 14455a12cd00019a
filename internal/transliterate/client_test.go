package transliterate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/wander/internal/domain"
	"github.com/MrSnakeDoc/wander/internal/retry"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(ClientOptions{
		URL:       srv.URL,
		Converter: "Traditional",
		Timeout:   time.Second,
		Policy: retry.Policy{
			MaxRetries: 2,
			Sleep:      func(context.Context, time.Duration) error { return nil },
		},
	})
}

func TestConvertSendsTextAndConverter(t *testing.T) {
	var got convertRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": map[string]string{"text": "北京故宮"}})
	})

	out, err := c.Convert(context.Background(), "北京故宫")
	require.NoError(t, err)
	assert.Equal(t, "北京故宮", out)
	assert.Equal(t, convertRequest{Text: "北京故宫", Converter: "Traditional"}, got)
}

func TestConvertServiceCodeIsFinal(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 3})
	})

	_, err := c.Convert(context.Background(), "北京")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConvertEmptyResultIsFinalFailure(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": map[string]string{"text": "  "}})
	})

	out, err := c.Convert(context.Background(), "故宫")
	require.ErrorIs(t, err, ErrEmptyConversion)
	assert.Empty(t, out)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNormalizerIgnoresEmptyConversion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0})
	})
	cache := NewMemoryCache()
	n := NewNormalizer(c, cache, nil)

	assert.Equal(t, domain.Fold("故宫"), n.Key(context.Background(), "故宫"))
	_, ok, err := cache.Get(context.Background(), "Traditional", "故宫")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConvertRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": map[string]string{"text": "ok"}})
	})

	out, err := c.Convert(context.Background(), "北京")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}
