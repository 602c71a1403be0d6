package verifier

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultClockSkew is the tolerance applied to exp, nbf and iat.
const DefaultClockSkew = 2 * time.Minute

// Option configures a Verifier.
type Option func(*options) error

type options struct {
	httpClient *http.Client
	jwksURI    string
	discovery  bool
	clockSkew  time.Duration
	now        func() time.Time
	logger     logrus.FieldLogger
	keys       KeyProvider
}

// WithHTTPClient sets the client used to fetch signing keys.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("HTTP client cannot be nil")
		}
		o.httpClient = c
		return nil
	}
}

// WithJWKSURI overrides the <issuer>/v1/keys default.
func WithJWKSURI(jwksURI string) Option {
	return func(o *options) error {
		if jwksURI == "" {
			return errors.New("JWKS URI cannot be empty")
		}
		o.jwksURI = jwksURI
		return nil
	}
}

// WithDiscovery resolves the signing keys location through the issuer's
// .well-known/openid-configuration document instead of <issuer>/v1/keys.
func WithDiscovery() Option {
	return func(o *options) error {
		o.discovery = true
		return nil
	}
}

// WithClockSkew sets the tolerance applied to the time based claims.
func WithClockSkew(skew time.Duration) Option {
	return func(o *options) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		o.clockSkew = skew
		return nil
	}
}

// WithClock sets the time source used to validate the time based claims.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		o.now = now
		return nil
	}
}

// WithLogger sets the logger handed to the key provider.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithKeyProvider replaces the JWKS backed key provider. The cache, discovery
// and HTTP client options are ignored when it is set.
func WithKeyProvider(keys KeyProvider) Option {
	return func(o *options) error {
		if keys == nil {
			return errors.New("key provider cannot be nil")
		}
		o.keys = keys
		return nil
	}
}
