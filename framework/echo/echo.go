// Package jwtecho authenticates echo requests with Okta access tokens.
package jwtecho

import (
	"fmt"
	"github.com/labstack/echo/v4"

	jwtmiddleware "github.com/jwtverifier/go-okta-jwt-middleware"
	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

// DefaultIdentityKey is the echo key the identity is stored under.
const DefaultIdentityKey = "jwt"

// echoMiddlewareConfig holds all configuration for the middleware
type echoMiddlewareConfig struct {
	errorHandler   func(echo.Context, error) error
	contextKey     string
	tokenExtractor jwtmiddleware.TokenExtractor
	coreOpts       []core.Option
}

// New creates an echo middleware for cfg. It fails only on invalid options;
// an invalid cfg makes every request fail with 400.
func New(cfg jwtmiddleware.Config, opts ...Option) (echo.MiddlewareFunc, error) {
	config := &echoMiddlewareConfig{
		errorHandler:   defaultEchoErrorHandler,
		contextKey:     DefaultIdentityKey,
		tokenExtractor: jwtmiddleware.AuthHeaderTokenExtractor,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	engine, err := core.New(cfg, config.coreOpts...)
	if err != nil {
		return nil, err
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			identity, err := engine.Authenticate(r.Context(), func() (string, error) {
				return config.tokenExtractor(r)
			})
			if err != nil {
				return config.errorHandler(c, err)
			}

			c.SetRequest(r.WithContext(core.SetIdentity(r.Context(), identity)))
			c.Set(config.contextKey, identity)
			return next(c)
		}
	}, nil
}

// defaultEchoErrorHandler answers like the net/http middleware.
func defaultEchoErrorHandler(c echo.Context, err error) error {
	jwtmiddleware.DefaultErrorHandler(c.Response(), c.Request(), err)
	return nil
}

// GetIdentity extracts the identity from the echo context. An empty
// contextKey means DefaultIdentityKey.
func GetIdentity(c echo.Context, contextKey string) (*core.Identity, bool) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}
	identity, ok := c.Get(contextKey).(*core.Identity)
	return identity, ok && identity != nil
}
