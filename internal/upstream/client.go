// Package upstream talks to the Bloxs OData feed and projects its
// heterogeneous error bodies into a single envelope shape.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/my-pwa-apps/Bloxs/internal/catalog"
)

// Client issues authenticated GET requests against the feed.
type Client struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// NewClient builds a Client for the given base URL.
func NewClient(baseURL string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Fetch performs a GET against path (which already carries the /odatafeed
// prefix) with the sanitised query appended. It returns the upstream status
// and body; err is non-nil only for transport-level failures.
func (c *Client) Fetch(ctx context.Context, path, sanitisedQuery, jwt string) (int, []byte, error) {
	url := c.baseURL + path + sanitisedQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwt)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// ErrorEnvelope is the shape returned to clients for upstream non-2xx
// responses.
type ErrorEnvelope struct {
	Error           string   `json:"error"`
	Status          int      `json:"status"`
	Entity          string   `json:"entity"`
	Suggestion      string   `json:"suggestion"`
	AvailableFields []string `json:"availableFields"`
	InvalidField    string   `json:"invalidField,omitempty"`
}

// invalidFieldPattern matches the upstream's complaint about an unknown
// property. Case-sensitive on purpose; the upstream message is stable.
var invalidFieldPattern = regexp.MustCompile(`property named '([^']+)'`)

// BuildErrorEnvelope projects an upstream error body onto the envelope.
// The message is the structured error.message when the body parses as
// JSON, otherwise the raw body text.
func BuildErrorEnvelope(status int, body []byte, entity string) *ErrorEnvelope {
	message := string(body)
	if gjson.ValidBytes(body) {
		if m := gjson.GetBytes(body, "error.message"); m.Exists() {
			message = m.String()
		}
	}

	env := &ErrorEnvelope{
		Error:           message,
		Status:          status,
		Entity:          entity,
		Suggestion:      fmt.Sprintf("Check the filter syntax and field names for %s.", entity),
		AvailableFields: catalog.FieldsFor(entity),
	}

	if m := invalidFieldPattern.FindStringSubmatch(message); m != nil {
		env.InvalidField = m[1]
		env.Suggestion = fmt.Sprintf("The field '%s' does not exist on %s.", m[1], entity)
	}

	return env
}
