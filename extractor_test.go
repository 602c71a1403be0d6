package jwtmiddleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AuthHeaderTokenExtractor(t *testing.T) {
	testCases := []struct {
		name      string
		header    string
		wantToken string
		wantError error
	}{
		{name: "no header"},
		{name: "bearer token", header: "Bearer i-am-a-token", wantToken: "i-am-a-token"},
		{name: "lowercase scheme", header: "bearer i-am-a-token", wantToken: "i-am-a-token"},
		{name: "uppercase scheme", header: "BEARER i-am-a-token", wantToken: "i-am-a-token"},
		{name: "scheme without token", header: "Bearer ", wantError: ErrMalformedAuthHeader},
		{name: "token without scheme", header: "i-am-a-token", wantError: ErrMalformedAuthHeader},
		{name: "other scheme", header: "Basic dXNlcjpwYXNz", wantError: ErrMalformedAuthHeader},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.header != "" {
				request.Header.Set("Authorization", testCase.header)
			}

			token, err := AuthHeaderTokenExtractor(request)
			assert.ErrorIs(t, err, testCase.wantError)
			assert.Equal(t, testCase.wantToken, token)
		})
	}
}

func Test_CookieTokenExtractor(t *testing.T) {
	t.Run("It reads the cookie", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(&http.Cookie{Name: "token", Value: "i-am-a-token"})

		token, err := CookieTokenExtractor("token")(request)
		assert.NoError(t, err)
		assert.Equal(t, "i-am-a-token", token)
	})

	t.Run("It returns no token without the cookie", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(&http.Cookie{Name: "other", Value: "x"})

		token, err := CookieTokenExtractor("token")(request)
		assert.NoError(t, err)
		assert.Empty(t, token)
	})
}

func Test_ParameterTokenExtractor(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/?access_token=i-am-a-token", nil)

	token, err := ParameterTokenExtractor("access_token")(request)
	assert.NoError(t, err)
	assert.Equal(t, "i-am-a-token", token)

	token, err = ParameterTokenExtractor("missing")(request)
	assert.NoError(t, err)
	assert.Empty(t, token)
}

func Test_MultiTokenExtractor(t *testing.T) {
	noToken := func(*http.Request) (string, error) { return "", nil }
	token := func(value string) TokenExtractor {
		return func(*http.Request) (string, error) { return value, nil }
	}
	failing := func(*http.Request) (string, error) { return "", errors.New("extraction failed") }

	testCases := []struct {
		name       string
		extractors []TokenExtractor
		wantToken  string
		wantError  string
	}{
		{name: "no extractors"},
		{name: "first non-empty token wins", extractors: []TokenExtractor{noToken, token("a"), token("b")}, wantToken: "a"},
		{name: "all empty", extractors: []TokenExtractor{noToken, noToken}},
		{name: "error stops the chain", extractors: []TokenExtractor{noToken, failing, token("a")}, wantError: "extraction failed"},
		{name: "token before error", extractors: []TokenExtractor{token("a"), failing}, wantToken: "a"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := MultiTokenExtractor(testCase.extractors...)(httptest.NewRequest(http.MethodGet, "/", nil))
			if testCase.wantError != "" {
				assert.EqualError(t, err, testCase.wantError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, testCase.wantToken, got)
		})
	}
}
