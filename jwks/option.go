package jwks

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Option is how options for the CachingProvider are set up.
type Option func(*CachingProvider) error

// WithJWKSURI sets the location of the key set.
func WithJWKSURI(jwksURI string) Option {
	return func(p *CachingProvider) error {
		if jwksURI == "" {
			return errors.New("JWKS URI cannot be empty")
		}
		if _, err := url.Parse(jwksURI); err != nil {
			return fmt.Errorf("invalid JWKS URI: %w", err)
		}
		p.jwksURI = jwksURI
		return nil
	}
}

// WithDiscovery resolves the key set location from the issuer's OIDC
// discovery document on first use. WithJWKSURI takes precedence.
func WithDiscovery(issuerURL *url.URL) Option {
	return func(p *CachingProvider) error {
		if issuerURL == nil {
			return errors.New("issuer URL cannot be nil")
		}
		p.issuerURL = issuerURL
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for discovery and key set fetches.
// If not specified, a client with a 30s timeout is used.
func WithHTTPClient(c *http.Client) Option {
	return func(p *CachingProvider) error {
		if c == nil {
			return errors.New("HTTP client cannot be nil")
		}
		p.httpClient = c
		return nil
	}
}

// WithCacheMaxAge sets how long a fetched key set is served from memory.
// Zero keeps the default of one hour.
func WithCacheMaxAge(maxAge time.Duration) Option {
	return func(p *CachingProvider) error {
		if maxAge < 0 {
			return errors.New("cache max age cannot be negative")
		}
		if maxAge > 0 {
			p.cacheMaxAge = maxAge
		}
		return nil
	}
}

// WithRequestsPerMinute caps the number of JWKS requests per minute.
// Zero keeps the default of 10.
func WithRequestsPerMinute(n int) Option {
	return func(p *CachingProvider) error {
		if n < 0 {
			return errors.New("requests per minute cannot be negative")
		}
		if n > 0 {
			p.requestsPerMinute = n
		}
		return nil
	}
}

// WithLogger sets the logger used to report fetch failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *CachingProvider) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// withClock is used by tests to control cache expiry.
func withClock(now func() time.Time) Option {
	return func(p *CachingProvider) error {
		p.now = now
		return nil
	}
}
