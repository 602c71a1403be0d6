// Package jwtgrpc authenticates gRPC calls with Okta access tokens.
//
//	interceptor, err := jwtgrpc.New(cfg, jwtgrpc.WithExcludedMethods([]string{
//	    "/grpc.health.v1.Health/Check",
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
package jwtgrpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	jwtmiddleware "github.com/jwtverifier/go-okta-jwt-middleware"
	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

// grpcMiddlewareConfig holds configuration for the gRPC adapter.
type grpcMiddlewareConfig struct {
	errorHandler     func(ctx context.Context, err error) error
	exclusionChecker func(method string) bool
	tokenExtractor   TokenExtractor
	logger           logrus.FieldLogger
	coreOpts         []core.Option
}

// Interceptor provides unary and stream interceptors sharing one Core.
type Interceptor struct {
	core   *core.Core
	config *grpcMiddlewareConfig
}

// New creates an Interceptor for cfg. It fails only on invalid options; an
// invalid cfg makes every call fail with InvalidArgument.
func New(cfg jwtmiddleware.Config, opts ...Option) (*Interceptor, error) {
	config := &grpcMiddlewareConfig{
		errorHandler:   defaultGRPCErrorHandler,
		tokenExtractor: MetadataTokenExtractor,
	}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	coreOpts := config.coreOpts
	if config.logger != nil {
		coreOpts = append([]core.Option{core.WithLogger(config.logger)}, coreOpts...)
	}

	c, err := core.New(cfg, coreOpts...)
	if err != nil {
		return nil, err
	}
	return &Interceptor{core: c, config: config}, nil
}

// Errors returns the configuration errors found at construction.
func (i *Interceptor) Errors() []string {
	return i.core.Errors()
}

// authenticate returns ctx carrying the caller's identity, or the error
// produced by the error handler.
func (i *Interceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	if i.config.exclusionChecker != nil && i.config.exclusionChecker(method) {
		return ctx, nil
	}

	identity, err := i.core.Authenticate(ctx, func() (string, error) {
		return i.config.tokenExtractor(ctx)
	})
	if err != nil {
		return nil, i.config.errorHandler(ctx, err)
	}
	return core.SetIdentity(ctx, identity), nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// authenticates the call before invoking handler.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		authCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(authCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// authenticates the stream before invoking handler.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		authCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: authCtx})
	}
}

// wrappedServerStream wraps a grpc.ServerStream to override the context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// defaultGRPCErrorHandler maps errors to the status codes matching the HTTP
// middleware's 400 and 401.
func defaultGRPCErrorHandler(_ context.Context, err error) error {
	var verificationErr *core.VerificationError

	switch {
	case errors.Is(err, core.ErrConfigInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, core.ErrJWTMissing):
		return status.Error(codes.Unauthenticated, "Unauthorized")
	case errors.As(err, &verificationErr):
		return status.Error(codes.InvalidArgument, verificationErr.Message())
	default:
		return status.Error(codes.InvalidArgument, err.Error())
	}
}

// GetIdentity returns the identity of an authenticated call.
func GetIdentity(ctx context.Context) (*core.Identity, error) {
	return core.GetIdentity(ctx)
}
