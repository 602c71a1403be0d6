// Package jwtgin authenticates gin requests with Okta access tokens.
package jwtgin

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	jwtmiddleware "github.com/jwtverifier/go-okta-jwt-middleware"
	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

// DefaultIdentityKey is the gin key the identity is stored under.
const DefaultIdentityKey = "jwt"

var (
	ErrMissingIdentity = errors.New("no identity found in context")
	ErrInvalidIdentity = errors.New("invalid identity type")
)

type ginMiddlewareConfig struct {
	errorHandler   func(*gin.Context, error)
	contextKey     string
	tokenExtractor jwtmiddleware.TokenExtractor
	coreOpts       []core.Option
}

// New creates a gin middleware for cfg. It fails only on invalid options;
// an invalid cfg makes every request fail with 400.
//
// The identity is stored in the request context, readable with
// jwtmiddleware.GetIdentity, and in the gin context under DefaultIdentityKey.
func New(cfg jwtmiddleware.Config, opts ...Option) (gin.HandlerFunc, error) {
	config := &ginMiddlewareConfig{
		errorHandler:   defaultGinErrorHandler,
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

	return func(c *gin.Context) {
		identity, err := engine.Authenticate(c.Request.Context(), func() (string, error) {
			return config.tokenExtractor(c.Request)
		})
		if err != nil {
			config.errorHandler(c, err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(core.SetIdentity(c.Request.Context(), identity))
		c.Set(config.contextKey, identity)
		c.Next()
	}, nil
}

// defaultGinErrorHandler answers like the net/http middleware.
func defaultGinErrorHandler(c *gin.Context, err error) {
	jwtmiddleware.DefaultErrorHandler(c.Writer, c.Request, err)
}

// GetIdentity returns the identity stored by the middleware. An empty
// contextKey means DefaultIdentityKey.
func GetIdentity(c *gin.Context, contextKey string) (*core.Identity, error) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingIdentity
	}

	identity, ok := value.(*core.Identity)
	if !ok {
		return nil, ErrInvalidIdentity
	}
	return identity, nil
}
