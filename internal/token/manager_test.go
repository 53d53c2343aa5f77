package token

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "bloxs",
		"exp": exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func authServer(t *testing.T, calls *atomic.Int64, body func() string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/Authorization", r.URL.Path)
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAcquireUsesJWTExpClaim(t *testing.T) {
	exp := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	token := signedToken(t, exp)

	var calls atomic.Int64
	srv := authServer(t, &calls, func() string {
		return fmt.Sprintf(`{"token":%q,"expiration":""}`, token)
	})

	m := NewManager(srv.URL, "k", "s", zap.NewNop())
	got, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)
	assert.Equal(t, exp.UnixMilli(), m.cached.expiresAtMs)
}

func TestAcquireReusesCachedToken(t *testing.T) {
	token := signedToken(t, time.Now().Add(2*time.Hour))

	var calls atomic.Int64
	srv := authServer(t, &calls, func() string {
		return fmt.Sprintf(`{"token":%q,"expiration":""}`, token)
	})

	m := NewManager(srv.URL, "k", "s", zap.NewNop())
	for i := 0; i < 3; i++ {
		got, err := m.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, token, got)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestAcquireRefreshesNearExpiry(t *testing.T) {
	// Expires in four minutes: inside the five-minute reuse margin.
	token := signedToken(t, time.Now().Add(4*time.Minute))

	var calls atomic.Int64
	srv := authServer(t, &calls, func() string {
		return fmt.Sprintf(`{"token":%q,"expiration":""}`, token)
	})

	m := NewManager(srv.URL, "k", "s", zap.NewNop())
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)
	_, err = m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestAcquireAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	m := NewManager(srv.URL, "k", "s", zap.NewNop())
	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bloxs auth failed: 401")
}

func TestResolveExpiryDateFallbackDayFirst(t *testing.T) {
	var calls atomic.Int64
	srv := authServer(t, &calls, func() string {
		return `{"token":"opaque-not-jwt","expiration":"01/10/2026 16:42:26"}`
	})

	m := NewManager(srv.URL, "k", "s", zap.NewNop())
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)

	want := time.Date(2026, time.October, 1, 16, 42, 26, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, m.cached.expiresAtMs)
}

func TestExpiryFromDateVariants(t *testing.T) {
	jan13 := time.Date(2026, time.January, 13, 0, 0, 0, 0, time.UTC).UnixMilli()

	// Day-first parse succeeds directly.
	ms, ok := expiryFromDate("13/01/2026 00:00:00")
	assert.True(t, ok)
	assert.Equal(t, jan13, ms)

	// Day-first yields month 13, so month-first is retried.
	ms, ok = expiryFromDate("01/13/2026 00:00:00")
	assert.True(t, ok)
	assert.Equal(t, jan13, ms)

	// Date without a time part.
	ms, ok = expiryFromDate("13/1/2026")
	assert.True(t, ok)
	assert.Equal(t, jan13, ms)

	_, ok = expiryFromDate("not a date")
	assert.False(t, ok)
	_, ok = expiryFromDate("")
	assert.False(t, ok)
}

func TestResolveExpiryFixedFallback(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var calls atomic.Int64
	srv := authServer(t, &calls, func() string {
		return `{"token":"opaque-not-jwt","expiration":"garbage"}`
	})

	m := NewManager(srv.URL, "k", "s", zap.NewNop(), WithClock(func() time.Time { return now }))
	_, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, now.UnixMilli()+int64(fallbackTTLMs), m.cached.expiresAtMs)
}

func TestAcquireTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	m := NewManager(srv.URL, "k", "s", zap.NewNop())
	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth request failed")
}
