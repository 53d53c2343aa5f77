package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/my-pwa-apps/Bloxs/internal/catalog"
	"github.com/my-pwa-apps/Bloxs/internal/config"
	"github.com/my-pwa-apps/Bloxs/internal/learn"
	"github.com/my-pwa-apps/Bloxs/internal/policy"
	"github.com/my-pwa-apps/Bloxs/internal/query"
	"github.com/my-pwa-apps/Bloxs/internal/redact"
	"github.com/my-pwa-apps/Bloxs/internal/token"
	"github.com/my-pwa-apps/Bloxs/internal/upstream"
)

// HTTPServer wires the proxy pipeline onto the base server.
type HTTPServer struct {
	*Server
	cfg      *config.Config
	log      *zap.Logger
	tokens   *token.Manager
	upstream *upstream.Client
	redactor *redact.Redactor
	learner  *learn.Learner
}

// Option overrides a pipeline component, mainly for tests.
type Option func(*HTTPServer)

// WithTokenManager replaces the token manager.
func WithTokenManager(m *token.Manager) Option {
	return func(s *HTTPServer) { s.tokens = m }
}

// WithUpstreamClient replaces the upstream client.
func WithUpstreamClient(c *upstream.Client) Option {
	return func(s *HTTPServer) { s.upstream = c }
}

// WithLearner replaces the learner.
func WithLearner(l *learn.Learner) Option {
	return func(s *HTTPServer) { s.learner = l }
}

// NewHTTPServer assembles the proxy from configuration.
func NewHTTPServer(addr string, cfg *config.Config, log *zap.Logger, opts ...Option) *HTTPServer {
	s := &HTTPServer{
		Server:   New(addr, log),
		cfg:      cfg,
		log:      log,
		tokens:   token.NewManager(cfg.BloxsBaseURL, cfg.BloxsAPIKey, cfg.BloxsAPISecret, log),
		upstream: upstream.NewClient(cfg.BloxsBaseURL, log),
		redactor: redact.New(policy.NewForbiddenNames(cfg.ForbiddenNames), log),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.learner == nil {
		var store learn.Store
		if cfg.LearningDB != "" {
			sqlStore, err := learn.OpenSQLiteStore(cfg.LearningDB)
			if err != nil {
				log.Warn("learning store unavailable", zap.String("path", cfg.LearningDB), zap.Error(err))
			} else {
				store = sqlStore
			}
		}
		s.learner = learn.New(store, cfg.LearningEnabled(), log)
	}

	return s
}

// Handler returns the routing mux; exposed for httptest.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/odatafeed/", s.handleOData)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Bloxs OData proxy is running"}`))
	})

	return mux
}

// Start starts the HTTP server with the proxy routes.
func (s *HTTPServer) Start() error {
	return s.run(s.Handler())
}

// Learner exposes the learner, letting callers flush background work.
func (s *HTTPServer) Learner() *learn.Learner {
	return s.learner
}

// handleOData is the proxy pipeline: CORS, method gate, credential check,
// special endpoints, path normalisation, token, query sanitisation,
// upstream fetch, redaction, background learning.
func (s *HTTPServer) handleOData(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w.Header())
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	authz := r.Header.Get("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		s.writeError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
		return
	}
	if strings.TrimSpace(authz[7:]) != s.cfg.ProxyAPIKey {
		s.writeError(w, http.StatusUnauthorized, "Invalid API key")
		return
	}

	reqLog := s.log.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("path", r.URL.Path),
	)
	start := time.Now()

	switch r.URL.Path {
	case "/odatafeed/$metadata-summary":
		s.writeJSON(w, http.StatusOK, catalog.BuildMetadataSummary())
		return
	case "/odatafeed/$learn-summary":
		s.handleLearnSummary(w, r)
		return
	}

	path, entity := normalisePath(r.URL.Path)
	reqLog = reqLog.With(zap.String("entity", entity))

	jwt, err := s.tokens.Acquire(r.Context())
	if err != nil {
		reqLog.Error("token acquisition failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get Bloxs token: %v", err))
		return
	}

	sanitised := query.Sanitize(r.URL.RawQuery, entity)

	if catalog.RequiresFilter(entity) && !hasFilter(sanitised) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf(
			"%s requires a $filter. Refine the query and keep $top at or below %d.",
			entity, catalog.TopCapFor(entity)))
		return
	}

	status, body, err := s.upstream.Fetch(r.Context(), path, sanitised, jwt)
	if err != nil {
		reqLog.Error("upstream fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("Failed to fetch from Bloxs: %v", err))
		return
	}

	if status < 200 || status > 299 {
		reqLog.Warn("upstream error", zap.Int("status", status))
		s.writeJSON(w, status, upstream.BuildErrorEnvelope(status, body, entity))
		return
	}

	redacted := s.redactor.Apply(body)

	setCORS(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(redacted)

	// Learning runs after the response bytes are written and never blocks.
	s.learner.Observe(entity, redacted)

	reqLog.Info("proxied request",
		zap.String("query", sanitised),
		zap.Duration("latency", time.Since(start)),
	)
}

// handleLearnSummary serves the learner read path.
func (s *HTTPServer) handleLearnSummary(w http.ResponseWriter, r *http.Request) {
	if !s.learner.Enabled() {
		if !s.learner.HasStore() && s.cfg.LearningEnabled() {
			s.writeError(w, http.StatusBadRequest, "Learning is disabled. No learning store is configured.")
			return
		}
		s.writeError(w, http.StatusBadRequest, "Learning is disabled. Set ENABLE_LEARNING=1 to record schema observations.")
		return
	}

	if entity := r.URL.Query().Get("entity"); entity != "" {
		record, err := s.learner.Record(r.Context(), entity)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read learning record: %v", err))
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"record": record})
		return
	}

	summary, err := s.learner.Summarize(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read learning index: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// normalisePath canonicalises the entity segment and returns the outgoing
// path together with the entity name.
func normalisePath(inbound string) (path, entity string) {
	rest := strings.TrimPrefix(inbound, "/odatafeed")
	rest = strings.TrimPrefix(rest, "/")

	seg, tail, hasTail := strings.Cut(rest, "/")
	if seg != "" && !strings.HasPrefix(seg, "$") {
		if canonical, ok := catalog.AliasFor(seg); ok {
			seg = canonical
		}
	}

	path = "/odatafeed/" + seg
	if hasTail {
		path += "/" + tail
	}
	return path, seg
}

// hasFilter reports whether the sanitised query carries a $filter.
func hasFilter(sanitised string) bool {
	for _, pair := range strings.Split(strings.TrimPrefix(sanitised, "?"), "&") {
		key, _, _ := strings.Cut(pair, "=")
		if decoded := decodeKey(key); decoded == "$filter" {
			return true
		}
	}
	return false
}
