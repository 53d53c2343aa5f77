package token

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// reuseMarginMs is how long before expiry a cached token stops being
// reused.
const reuseMarginMs = 5 * 60 * 1000

// fallbackTTLMs applies when neither the JWT nor the expiration field
// yields a usable expiry.
const fallbackTTLMs = 55 * 60 * 1000

// entry is the cached upstream credential.
type entry struct {
	jwt         string
	expiresAtMs int64
}

// Manager exchanges the configured apiKey/apiSecret for a Bloxs JWT and
// caches it for the process. It is the sole writer of the cache; concurrent
// refreshes may each hit the auth endpoint, which is harmless (last write
// wins, both tokens are valid).
type Manager struct {
	baseURL   string
	apiKey    string
	apiSecret string

	client *http.Client
	now    func() time.Time
	log    *zap.Logger

	mu     sync.Mutex
	cached *entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient overrides the HTTP client used for the auth exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager for the given upstream base URL and
// credentials.
func NewManager(baseURL, apiKey, apiSecret string, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m
}

// Acquire returns the cached JWT while it has more than the reuse margin
// left; otherwise it fetches a fresh one from the upstream auth endpoint and
// returns it whatever its remaining lifetime.
func (m *Manager) Acquire(ctx context.Context) (string, error) {
	nowMs := m.now().UnixMilli()

	m.mu.Lock()
	if m.cached != nil && m.cached.expiresAtMs-nowMs > reuseMarginMs {
		tok := m.cached.jwt
		m.mu.Unlock()
		return tok, nil
	}
	m.mu.Unlock()

	fresh, err := m.fetch(ctx)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.cached = fresh
	m.mu.Unlock()

	m.log.Info("refreshed Bloxs token",
		zap.Int64("expires_at_ms", fresh.expiresAtMs),
	)
	return fresh.jwt, nil
}

// authResponse is the upstream auth endpoint payload.
type authResponse struct {
	Token      string `json:"token"`
	Expiration string `json:"expiration"`
}

func (m *Manager) fetch(ctx context.Context) (*entry, error) {
	payload, err := sonic.Marshal(map[string]string{
		"apiKey":    m.apiKey,
		"apiSecret": m.apiSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/Authorization", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Bloxs auth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read auth response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Bloxs auth failed: %d", resp.StatusCode)
	}

	var auth authResponse
	if err := sonic.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if auth.Token == "" {
		return nil, fmt.Errorf("Bloxs auth response has no token")
	}

	return &entry{
		jwt:         auth.Token,
		expiresAtMs: m.resolveExpiry(auth),
	}, nil
}

// resolveExpiry derives the token expiry in epoch milliseconds. Strategy,
// in order: the JWT exp claim, the textual expiration field (day-first,
// then month-first, interpreted as UTC), a fixed fallback TTL.
func (m *Manager) resolveExpiry(auth authResponse) int64 {
	if ms, ok := expiryFromJWT(auth.Token); ok {
		return ms
	}
	if ms, ok := expiryFromDate(auth.Expiration); ok {
		return ms
	}
	return m.now().UnixMilli() + fallbackTTLMs
}

// expiryFromJWT reads the exp claim without verifying the signature. The
// proxy is a bearer of the token, not its audience.
func expiryFromJWT(raw string) (int64, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return 0, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, false
	}
	return exp.Time.UnixMilli(), true
}

// dayFirstLayouts and monthFirstLayouts accept D/M/YYYY and M/D/YYYY with
// an optional time part. The upstream
// emits day-first dates; month-first is retried when day-first produces an
// invalid calendar date (e.g. 01/13/2026).
var (
	dayFirstLayouts   = []string{"2/1/2006 15:04:05", "2/1/2006 15:04", "2/1/2006"}
	monthFirstLayouts = []string{"1/2/2006 15:04:05", "1/2/2006 15:04", "1/2/2006"}
)

func expiryFromDate(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UnixMilli(), true
		}
	}
	for _, layout := range monthFirstLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}
