package jwtmiddleware

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwtverifier/go-okta-jwt-middleware/core"
	"github.com/jwtverifier/go-okta-jwt-middleware/verifier"
)

// Option configures the JWTMiddleware.
// Returns error for validation failures.
type Option func(*JWTMiddleware) error

// WithValidateOnOptions sets whether OPTIONS requests are authenticated.
//
// Default: true (OPTIONS requests are authenticated)
func WithValidateOnOptions(value bool) Option {
	return func(m *JWTMiddleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler that writes the response of a rejected
// request. See the ErrorHandler type for more information.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *JWTMiddleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the token from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *JWTMiddleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithExclusionUrls configures URLs that skip authentication.
// Entries can be full URLs or just paths. Excluded requests reach the next
// handler even when the configuration is invalid.
func WithExclusionUrls(exclusions []string) Option {
	return func(m *JWTMiddleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		m.exclusions = append(m.exclusions, exclusions...)
		return nil
	}
}

// WithLogger sets the logger used by the middleware and the verifier.
//
// Example:
//
//	middleware, err := jwtmiddleware.New(cfg,
//	    jwtmiddleware.WithLogger(logrus.WithField("component", "auth")),
//	)
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *JWTMiddleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithTracerProvider sets the provider used for verification spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *JWTMiddleware) error {
		m.coreOpts = append(m.coreOpts, core.WithTracerProvider(tp))
		return nil
	}
}

// WithMetrics records request outcomes on metrics created with
// core.NewMetrics.
func WithMetrics(metrics *core.Metrics) Option {
	return func(m *JWTMiddleware) error {
		m.coreOpts = append(m.coreOpts, core.WithMetrics(metrics))
		return nil
	}
}

// WithVerifierFactory replaces the access token verifier.
func WithVerifierFactory(factory core.VerifierFactory) Option {
	return func(m *JWTMiddleware) error {
		m.coreOpts = append(m.coreOpts, core.WithVerifierFactory(factory))
		return nil
	}
}

// WithVerifierOptions configures the default access token verifier.
//
// Example:
//
//	middleware, err := jwtmiddleware.New(cfg,
//	    jwtmiddleware.WithVerifierOptions(verifier.WithDiscovery()),
//	)
func WithVerifierOptions(opts ...verifier.Option) Option {
	return func(m *JWTMiddleware) error {
		m.coreOpts = append(m.coreOpts, core.WithVerifierOptions(opts...))
		return nil
	}
}

// WithHTTPClient sets the client the default verifier uses to reach the
// authorization server.
func WithHTTPClient(client *http.Client) Option {
	return func(m *JWTMiddleware) error {
		if client == nil {
			return ErrHTTPClientNil
		}
		m.coreOpts = append(m.coreOpts, core.WithHTTPClient(client))
		return nil
	}
}

// WithCoreOptions passes options straight to core.New.
func WithCoreOptions(opts ...core.Option) Option {
	return func(m *JWTMiddleware) error {
		m.coreOpts = append(m.coreOpts, opts...)
		return nil
	}
}

// Sentinel errors for option validation
var (
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil  = errors.New("tokenExtractor cannot be nil")
	ErrExclusionUrlsEmpty = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil          = errors.New("logger cannot be nil")
	ErrHTTPClientNil      = errors.New("HTTP client cannot be nil")
)
