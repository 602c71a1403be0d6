package core

import (
	"context"

	"github.com/jwtverifier/go-okta-jwt-middleware/verifier"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	identityKey contextKey = iota
)

// Identity is attached to a request once its access token is verified.
type Identity struct {
	// Token is the verified access token. It is nil for identities set up by
	// an upstream authenticator.
	Token           *verifier.Jwt
	IsAuthenticated bool
}

// Claims returns the claims of the verified token, or nil.
func (i *Identity) Claims() map[string]any {
	if i == nil || i.Token == nil {
		return nil
	}
	return i.Token.Claims
}

// SetIdentity stores identity in the context. An upstream authenticator can
// use it to mark a request as authenticated before the middleware runs.
func SetIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the identity stored in the context.
func GetIdentity(ctx context.Context) (*Identity, error) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	if !ok || identity == nil {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}

// HasIdentity reports whether an identity is stored in the context.
func HasIdentity(ctx context.Context) bool {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return ok && identity != nil
}

func authenticatedIdentity(ctx context.Context) (*Identity, bool) {
	identity, err := GetIdentity(ctx)
	if err != nil || !identity.IsAuthenticated {
		return nil, false
	}
	return identity, true
}
