package oidc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GetWellKnownEndpointsFromIssuerURL(t *testing.T) {
	testCases := []struct {
		name          string
		responseCode  int
		responseBody  func(serverURL string) string
		expectedError string
	}{
		{
			name:         "It returns the jwks_uri of a matching issuer",
			responseCode: http.StatusOK,
			responseBody: func(serverURL string) string {
				return fmt.Sprintf(`{"issuer":%q,"jwks_uri":"%s/v1/keys"}`, serverURL+"/oauth2/default", serverURL)
			},
		},
		{
			name:         "It tolerates a trailing slash on the advertised issuer",
			responseCode: http.StatusOK,
			responseBody: func(serverURL string) string {
				return fmt.Sprintf(`{"issuer":%q,"jwks_uri":"%s/v1/keys"}`, serverURL+"/oauth2/default/", serverURL)
			},
		},
		{
			name:          "It fails on a non 200 response",
			responseCode:  http.StatusNotFound,
			responseBody:  func(string) string { return `{"error":"not found"}` },
			expectedError: "unexpected status 404",
		},
		{
			name:          "It fails on malformed JSON",
			responseCode:  http.StatusOK,
			responseBody:  func(string) string { return `{"jwks_uri": "https://example.com/jwks"` },
			expectedError: "could not decode json body",
		},
		{
			name:          "It fails when the jwks_uri is missing",
			responseCode:  http.StatusOK,
			responseBody:  func(string) string { return `{"issuer":"whatever"}` },
			expectedError: "do not contain a jwks_uri",
		},
		{
			name:         "It fails on an issuer mismatch",
			responseCode: http.StatusOK,
			responseBody: func(string) string {
				return `{"issuer":"https://evil.example.com","jwks_uri":"https://evil.example.com/keys"}`
			},
			expectedError: "issuer mismatch",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var gotPath string
			var serverURL string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(testCase.responseCode)
				_, _ = w.Write([]byte(testCase.responseBody(serverURL)))
			}))
			defer server.Close()
			serverURL = server.URL

			issuerURL, err := url.Parse(server.URL + "/oauth2/default")
			require.NoError(t, err)

			endpoints, err := GetWellKnownEndpointsFromIssuerURL(context.Background(), server.Client(), *issuerURL)
			assert.Equal(t, "/oauth2/default/.well-known/openid-configuration", gotPath)

			if testCase.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), testCase.expectedError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, server.URL+"/v1/keys", endpoints.JWKSURI)
		})
	}

	t.Run("It honours context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		issuerURL, err := url.Parse(server.URL)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = GetWellKnownEndpointsFromIssuerURL(ctx, server.Client(), *issuerURL)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
