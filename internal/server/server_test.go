package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalworks/verdict/internal/auth"
	"github.com/orbitalworks/verdict/internal/model"
)

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

// newTestServer assembles the full middleware chain and routes. The DB and
// decision service are nil, so only paths rejected before reaching a handler
// (auth failures, decode failures) are exercised here; handler behavior is
// covered by the service integration tests.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	return New(ServerConfig{
		JWTMgr:              mgr,
		Logger:              testLogger(),
		Port:                0,
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
		BacklogLimit:        25,
	})
}

func TestServerRejectsUnauthenticatedRequests(t *testing.T) {
	srv := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{"GET", "/v1/decisions"},
		{"POST", "/v1/decisions"},
		{"GET", "/v1/decisions/metrics"},
		{"GET", "/v1/decisions/backlog"},
		{"POST", "/v1/decisions/batch-review"},
		{"GET", "/v1/notifications"},
		{"GET", "/v1/subscribe"},
	}
	for _, p := range paths {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(p.method, p.path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)

		var envelope model.APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, model.ErrCodeUnauthorized, envelope.Error.Code)
		assert.NotEmpty(t, envelope.Meta.RequestID)
	}
}

func TestServerSetsSecurityAndRequestIDHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/decisions", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServerAuthTokenRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/auth/token", jsonBody("{not json")))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/auth/token", jsonBody(`{"user_id":"00000000-0000-0000-0000-000000000000","org_id":"00000000-0000-0000-0000-000000000000"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code, "nil tenancy IDs must be rejected before any lookup")
}

func TestServerUnknownRouteRequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health-check-typo", nil))
	// Unknown paths still pass through auth first.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
