package jwtmiddleware

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

// Config is the middleware configuration. See core.Config.
type Config = core.Config

// TestingConfig is the testing section of Config.
type TestingConfig = core.TestingConfig

// Identity is attached to the request context once a request is
// authenticated.
type Identity = core.Identity

// JWTMiddleware authenticates requests with an Okta access token.
type JWTMiddleware struct {
	core                *core.Core
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	trustedProxies      *TrustedProxyConfig
	exclusions          []string
	logger              logrus.FieldLogger

	// Temporary field used during construction
	coreOpts []core.Option
}

// ExclusionURLHandler reports whether a request skips authentication.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a JWTMiddleware from cfg.
//
// An invalid cfg does not make New fail: the middleware is still returned and
// answers every request with 400 and the configuration errors, which are also
// available through Errors. New only fails on invalid options.
//
// Example:
//
//	middleware, err := jwtmiddleware.New(jwtmiddleware.Config{
//	    Issuer:   "https://example.okta.com/oauth2/default",
//	    ClientID: "0oa1b2c3d4",
//	})
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
//	http.Handle("/api/", middleware.CheckJWT(apiHandler))
func New(cfg Config, opts ...Option) (*JWTMiddleware, error) {
	m := &JWTMiddleware{
		validateOnOptions: true,
		errorHandler:      DefaultErrorHandler,
		tokenExtractor:    AuthHeaderTokenExtractor,
		logger:            discardLogger(),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if len(m.exclusions) > 0 {
		m.exclusionURLHandler = exclusionMatcher(m.exclusions, m.trustedProxies)
	}

	coreOpts := append([]core.Option{core.WithLogger(m.logger)}, m.coreOpts...)
	c, err := core.New(cfg, coreOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}
	m.core = c
	m.coreOpts = nil

	return m, nil
}

// Middleware builds a JWTMiddleware and returns its CheckJWT method, ready to
// wrap a handler.
func Middleware(cfg Config, opts ...Option) (func(http.Handler) http.Handler, error) {
	m, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return m.CheckJWT, nil
}

// Errors returns the configuration errors found at construction.
func (m *JWTMiddleware) Errors() []string {
	return m.core.Errors()
}

// Ready reports whether the configuration was valid.
func (m *JWTMiddleware) Ready() bool {
	return m.core.Ready()
}

// GetIdentity retrieves the identity stored by the middleware, or by an
// upstream authenticator through WithIdentity.
func GetIdentity(ctx context.Context) (*Identity, error) {
	return core.GetIdentity(ctx)
}

// HasIdentity reports whether the context carries an identity.
func HasIdentity(ctx context.Context) bool {
	return core.HasIdentity(ctx)
}

// WithIdentity returns a context carrying identity. A request whose context
// holds an authenticated identity passes the middleware without a token.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return core.SetIdentity(ctx, identity)
}

// CheckJWT returns a handler that authenticates the request before calling
// next.
func (m *JWTMiddleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HandlerWithNext(w, r, next)
	})
}

// HandlerWithNext authenticates r and calls next at most once. On failure
// the error handler writes the response and next is not called.
func (m *JWTMiddleware) HandlerWithNext(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
		m.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Debug("skipping JWT validation for excluded URL")
		next.ServeHTTP(w, r)
		return
	}

	if !m.validateOnOptions && r.Method == http.MethodOptions {
		m.logger.Debug("skipping JWT validation for OPTIONS request")
		next.ServeHTTP(w, r)
		return
	}

	ctx := r.Context()
	identity, err := m.core.Authenticate(ctx, func() (string, error) {
		return m.tokenExtractor(r)
	})
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"error":  err.Error(),
			"method": r.Method,
			"path":   r.URL.Path,
		}).Debug("request not authenticated")
		m.errorHandler(w, r, err)
		return
	}

	if existing, err := core.GetIdentity(ctx); err == nil && existing == identity {
		next.ServeHTTP(w, r)
		return
	}

	next.ServeHTTP(w, r.WithContext(core.SetIdentity(ctx, identity)))
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
