package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtmiddleware "github.com/jwtverifier/go-okta-jwt-middleware"
	"github.com/jwtverifier/go-okta-jwt-middleware/internal/oktatest"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Path+" "+r.Header.Get(SubjectHeader))
	}))
	t.Cleanup(upstream.Close)
	return upstream
}

func get(t *testing.T, handler http.Handler, path, authorization string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		request.Header.Set("Authorization", authorization)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Set(headers[i], headers[i+1])
	}
	response := httptest.NewRecorder()
	handler.ServeHTTP(response, request)
	return response
}

func TestServer(t *testing.T) {
	issuer := oktatest.NewIssuer(t)
	upstream := newUpstream(t)
	logger, _ := test.NewNullLogger()

	server, err := NewServer(Config{
		Upstream: upstream.URL,
		Auth: jwtmiddleware.Config{
			Issuer:   issuer.URL(),
			ClientID: "0oa-test-client",
			Testing:  jwtmiddleware.TestingConfig{DisableHTTPSCheck: true},
		},
	}, logger, jwtmiddleware.WithHTTPClient(issuer.Client()))
	require.NoError(t, err)
	handler := server.Handler()

	t.Run("It proxies an authenticated request with the subject", func(t *testing.T) {
		response := get(t, handler, "/orders", "Bearer "+issuer.Sign(t, nil), SubjectHeader, "spoofed")
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, "/orders u1", response.Body.String())
	})

	t.Run("It rejects a request without a token", func(t *testing.T) {
		response := get(t, handler, "/orders", "")
		assert.Equal(t, http.StatusUnauthorized, response.Code)
		assert.Equal(t, "Unauthorized", response.Body.String())
	})

	t.Run("It rejects a token of another client", func(t *testing.T) {
		response := get(t, handler, "/orders", "Bearer "+issuer.Sign(t, map[string]any{"cid": "0oa-other"}))
		assert.Equal(t, http.StatusBadRequest, response.Code)
		assert.Contains(t, response.Body.String(), "claim 'cid'")
	})

	t.Run("It serves health checks without a token", func(t *testing.T) {
		response := get(t, handler, "/healthz", "")
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, "ok", response.Body.String())
	})

	t.Run("It exposes metrics without a token", func(t *testing.T) {
		response := get(t, handler, "/metrics", "")
		assert.Equal(t, http.StatusOK, response.Code)
		assert.True(t, strings.Contains(response.Body.String(), `jwtmiddleware_requests_total{outcome="verified"}`))
	})
}

func TestServerWithInvalidAuthConfig(t *testing.T) {
	logger, hook := test.NewNullLogger()

	server, err := NewServer(Config{Upstream: newUpstream(t).URL}, logger)
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "auth configuration is invalid")

	response := get(t, server.Handler(), "/orders", "Bearer abc")
	assert.Equal(t, http.StatusBadRequest, response.Code)

	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Errors)

	assert.Equal(t, http.StatusOK, get(t, server.Handler(), "/healthz", "").Code)
}

func TestNewServerRejectsRelativeUpstream(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewServer(Config{Upstream: "/relative"}, logger)
	assert.Error(t, err)
}
