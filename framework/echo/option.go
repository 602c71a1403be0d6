package jwtecho

import (
	"errors"

	"github.com/labstack/echo/v4"

	jwtmiddleware "github.com/jwtverifier/go-okta-jwt-middleware"
	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

// ErrContextKeyEmpty is returned by WithContextKey for an empty key.
var ErrContextKeyEmpty = errors.New("context key cannot be empty")

// Option is a function that configures the middleware
type Option func(*echoMiddlewareConfig) error

// WithErrorHandler sets a custom error handler. Its return value is returned
// from the middleware.
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(config *echoMiddlewareConfig) error {
		if handler == nil {
			return jwtmiddleware.ErrErrorHandlerNil
		}
		config.errorHandler = handler
		return nil
	}
}

// WithContextKey sets a custom context key to store the identity
func WithContextKey(key string) Option {
	return func(config *echoMiddlewareConfig) error {
		if key == "" {
			return ErrContextKeyEmpty
		}
		config.contextKey = key
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor
func WithTokenExtractor(extractor jwtmiddleware.TokenExtractor) Option {
	return func(config *echoMiddlewareConfig) error {
		if extractor == nil {
			return jwtmiddleware.ErrTokenExtractorNil
		}
		config.tokenExtractor = extractor
		return nil
	}
}

// WithCoreOptions passes options to core.New
func WithCoreOptions(opts ...core.Option) Option {
	return func(config *echoMiddlewareConfig) error {
		config.coreOpts = append(config.coreOpts, opts...)
		return nil
	}
}
