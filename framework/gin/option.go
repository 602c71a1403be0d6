package jwtgin

import (
	"errors"

	"github.com/gin-gonic/gin"

	jwtmiddleware "github.com/jwtverifier/go-okta-jwt-middleware"
	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

// ErrContextKeyEmpty is returned by WithContextKey for an empty key.
var ErrContextKeyEmpty = errors.New("context key cannot be empty")

// Option defines a functional option for configuring the middleware
type Option func(*ginMiddlewareConfig) error

// WithErrorHandler sets a custom error handler for the middleware
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(config *ginMiddlewareConfig) error {
		if handler == nil {
			return jwtmiddleware.ErrErrorHandlerNil
		}
		config.errorHandler = handler
		return nil
	}
}

// WithContextKey sets the gin key the identity is stored under
func WithContextKey(key string) Option {
	return func(config *ginMiddlewareConfig) error {
		if key == "" {
			return ErrContextKeyEmpty
		}
		config.contextKey = key
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor
func WithTokenExtractor(extractor jwtmiddleware.TokenExtractor) Option {
	return func(config *ginMiddlewareConfig) error {
		if extractor == nil {
			return jwtmiddleware.ErrTokenExtractorNil
		}
		config.tokenExtractor = extractor
		return nil
	}
}

// WithCoreOptions passes options to core.New, for logging, tracing,
// metrics or a custom verifier.
func WithCoreOptions(opts ...core.Option) Option {
	return func(config *ginMiddlewareConfig) error {
		config.coreOpts = append(config.coreOpts, opts...)
		return nil
	}
}
