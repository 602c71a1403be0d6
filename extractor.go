package jwtmiddleware

import (
	"errors"
	"net/http"

	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

// TokenExtractor is a function that takes a request as input and returns
// either a token or an error. An empty string means no token was sent. The
// middleware treats an error like a missing token.
type TokenExtractor func(r *http.Request) (string, error)

// ErrMalformedAuthHeader is returned for an Authorization header that is not
// of the form "Bearer <token>".
var ErrMalformedAuthHeader = errors.New("Authorization header format must be Bearer {token}")

// AuthHeaderTokenExtractor extracts the token from the Authorization header.
// The scheme is matched case-insensitively.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", nil // No error, just no JWT.
	}

	token := core.ParseBearer(authHeader)
	if token == "" {
		return "", ErrMalformedAuthHeader
	}
	return token, nil
}

// CookieTokenExtractor builds a TokenExtractor that takes a request and
// extracts the token from the cookie using the passed in cookieName.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil // No cookie, then no JWT, so no error.
		}
		if err != nil {
			return "", err
		}
		return cookie.Value, nil
	}
}

// ParameterTokenExtractor returns a TokenExtractor that extracts
// the token from the specified query string parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor returns a TokenExtractor that runs multiple TokenExtractors
// and takes the one that does not return an empty token. If a TokenExtractor
// returns an error that error is immediately returned.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err != nil {
				return "", err
			}

			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
