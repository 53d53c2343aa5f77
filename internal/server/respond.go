package server

import (
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// setCORS applies the permissive CORS policy carried by every proxy
// response.
func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	h.Set("Access-Control-Max-Age", "86400")
}

// writeJSON renders v as a JSON response with CORS headers.
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	setCORS(w.Header())
	w.Header().Set("Content-Type", "application/json")

	payload, err := sonic.Marshal(v)
	if err != nil {
		s.log.Error("response encoding failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal encoding error"}`))
		return
	}

	w.WriteHeader(status)
	w.Write(payload)
}

// writeError renders the {error: ...} envelope used by every proxy-local
// failure.
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// decodeKey unescapes a query parameter key, falling back to the raw bytes
// when the escaping is malformed.
func decodeKey(key string) string {
	if d, err := url.QueryUnescape(key); err == nil {
		return d
	}
	return key
}
