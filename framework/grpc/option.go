package jwtgrpc

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	jwtmiddleware "github.com/jwtverifier/go-okta-jwt-middleware"
	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

var (
	ErrExclusionCheckerNil  = errors.New("exclusion checker cannot be nil")
	ErrExcludedMethodsEmpty = errors.New("excluded methods list cannot be empty")
)

// Option defines a functional option for configuring the gRPC adapter.
type Option func(*grpcMiddlewareConfig) error

// WithErrorHandler sets a custom gRPC error handler. The error it returns is
// returned to the client.
func WithErrorHandler(handler func(ctx context.Context, err error) error) Option {
	return func(cfg *grpcMiddlewareConfig) error {
		if handler == nil {
			return jwtmiddleware.ErrErrorHandlerNil
		}
		cfg.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods allows configuring a list of gRPC methods to exclude from JWT validation.
func WithExcludedMethods(methods []string) Option {
	methodSet := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		methodSet[m] = struct{}{}
	}
	return func(cfg *grpcMiddlewareConfig) error {
		if len(methodSet) == 0 {
			return ErrExcludedMethodsEmpty
		}
		cfg.exclusionChecker = func(method string) bool {
			_, ok := methodSet[method]
			return ok
		}
		return nil
	}
}

// WithExclusionChecker allows configuring a custom exclusion checker for gRPC methods.
func WithExclusionChecker(checker func(string) bool) Option {
	return func(cfg *grpcMiddlewareConfig) error {
		if checker == nil {
			return ErrExclusionCheckerNil
		}
		cfg.exclusionChecker = checker
		return nil
	}
}

// WithTokenExtractor sets how the token is read from the call.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(cfg *grpcMiddlewareConfig) error {
		if extractor == nil {
			return jwtmiddleware.ErrTokenExtractorNil
		}
		cfg.tokenExtractor = extractor
		return nil
	}
}

// WithLogger sets the logger for the interceptor.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(cfg *grpcMiddlewareConfig) error {
		if logger == nil {
			return jwtmiddleware.ErrLoggerNil
		}
		cfg.logger = logger
		return nil
	}
}

// WithCoreOptions passes options to core.New.
func WithCoreOptions(opts ...core.Option) Option {
	return func(cfg *grpcMiddlewareConfig) error {
		cfg.coreOpts = append(cfg.coreOpts, opts...)
		return nil
	}
}
