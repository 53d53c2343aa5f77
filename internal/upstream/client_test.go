package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchForwardsAuthAndQuery(t *testing.T) {
	var gotAuth, gotAccept, gotQuery, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"value":[]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, zap.NewNop())
	status, body, err := c.Fetch(context.Background(), "/odatafeed/Units", "?$top=10", "jwt-123")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"value":[]}`, string(body))
	assert.Equal(t, "Bearer jwt-123", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "/odatafeed/Units", gotPath)
	assert.Equal(t, "$top=10", gotQuery)
}

func TestFetchReturnsUpstreamStatusWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad filter"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, zap.NewNop())
	status, body, err := c.Fetch(context.Background(), "/odatafeed/Units", "", "jwt")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "bad filter")
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, _, err := c.Fetch(context.Background(), "/odatafeed/Units", "", "jwt")
	require.Error(t, err)
}

func TestBuildErrorEnvelopeStructuredMessage(t *testing.T) {
	body := []byte(`{"error":{"message":"Could not find a property named 'Foo' on type 'Bloxs.Unit'"}}`)
	env := BuildErrorEnvelope(http.StatusBadRequest, body, "Units")

	assert.Equal(t, "Could not find a property named 'Foo' on type 'Bloxs.Unit'", env.Error)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Equal(t, "Units", env.Entity)
	assert.Equal(t, "Foo", env.InvalidField)
	assert.Equal(t, "The field 'Foo' does not exist on Units.", env.Suggestion)
	assert.Equal(t, []string{"UnitId", "Reference", "DisplayName", "UnitType", "Surface", "City"}, env.AvailableFields)
}

func TestBuildErrorEnvelopeRawBody(t *testing.T) {
	env := BuildErrorEnvelope(http.StatusBadGateway, []byte("upstream exploded"), "Units")

	assert.Equal(t, "upstream exploded", env.Error)
	assert.Empty(t, env.InvalidField)
	assert.Contains(t, env.Suggestion, "Units")
	assert.NotEmpty(t, env.AvailableFields)
}

func TestBuildErrorEnvelopeJSONWithoutErrorMessage(t *testing.T) {
	body := []byte(`{"detail":"no standard error shape"}`)
	env := BuildErrorEnvelope(http.StatusInternalServerError, body, "Units")
	assert.Equal(t, string(body), env.Error)
}
