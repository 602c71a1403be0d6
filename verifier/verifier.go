package verifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/sirupsen/logrus"

	"github.com/jwtverifier/go-okta-jwt-middleware/jwks"
)

// Config describes the authorization server whose access tokens are accepted.
type Config struct {
	// Issuer is the authorization server URL, for example
	// https://example.okta.com/oauth2/default. Required.
	Issuer string
	// ClientID, when set, must match the cid claim.
	ClientID string
	// AssertClaims are extra claim assertions, see the package documentation.
	AssertClaims map[string]any
	// CacheMaxAge is how long signing keys are cached. Defaults to one hour.
	CacheMaxAge time.Duration
	// JWKSRequestsPerMinute limits signing key requests. Defaults to 10.
	JWKSRequestsPerMinute int
}

// KeyProvider resolves signing keys by key ID. *jwks.CachingProvider
// implements it.
type KeyProvider interface {
	LookupKey(ctx context.Context, kid string) (jwk.Key, error)
}

// Jwt is a verified access token.
type Jwt struct {
	Header map[string]any
	Claims map[string]any

	raw string
}

// String returns the compact serialization the Jwt was parsed from.
func (j *Jwt) String() string {
	return j.raw
}

// Verifier verifies access tokens of one issuer. It is safe for concurrent
// use.
type Verifier struct {
	issuer     string
	clientID   string
	assertions []claimAssertion
	keys       KeyProvider
	clockSkew  time.Duration
	now        func() time.Time
}

// New builds a Verifier for cfg.
func New(cfg Config, opts ...Option) (*Verifier, error) {
	o := &options{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		clockSkew:  DefaultClockSkew,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	issuerURL, err := url.Parse(cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("invalid issuer URL: %w", err)
	}

	assertions, err := parseAssertClaims(cfg.AssertClaims)
	if err != nil {
		return nil, err
	}

	keys := o.keys
	if keys == nil {
		keys, err = newKeyProvider(cfg, issuerURL, o)
		if err != nil {
			return nil, err
		}
	}

	return &Verifier{
		issuer:     cfg.Issuer,
		clientID:   cfg.ClientID,
		assertions: assertions,
		keys:       keys,
		clockSkew:  o.clockSkew,
		now:        o.now,
	}, nil
}

func newKeyProvider(cfg Config, issuerURL *url.URL, o *options) (*jwks.CachingProvider, error) {
	logger := o.logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	providerOpts := []jwks.Option{
		jwks.WithHTTPClient(o.httpClient),
		jwks.WithCacheMaxAge(cfg.CacheMaxAge),
		jwks.WithRequestsPerMinute(cfg.JWKSRequestsPerMinute),
		jwks.WithLogger(logger),
	}
	switch {
	case o.jwksURI != "":
		providerOpts = append(providerOpts, jwks.WithJWKSURI(o.jwksURI))
	case o.discovery:
		providerOpts = append(providerOpts, jwks.WithDiscovery(issuerURL))
	default:
		providerOpts = append(providerOpts, jwks.WithJWKSURI(strings.TrimSuffix(cfg.Issuer, "/")+"/v1/keys"))
	}

	return jwks.NewCachingProvider(providerOpts...)
}

// VerifyAccessToken verifies accessToken and returns its header and claims.
// Any failure is returned as a *Error.
func (v *Verifier) VerifyAccessToken(ctx context.Context, accessToken string) (*Jwt, error) {
	if err := checkTokenFormat(accessToken); err != nil {
		return nil, newError(ErrorCodeTokenMalformed, "Jwt cannot be parsed", err)
	}

	msg, err := jws.Parse([]byte(accessToken))
	if err != nil {
		return nil, newError(ErrorCodeTokenMalformed, "Jwt cannot be parsed", err)
	}
	signatures := msg.Signatures()
	if len(signatures) != 1 {
		return nil, newError(ErrorCodeTokenMalformed, "Jwt cannot be parsed", nil)
	}
	headers := signatures[0].ProtectedHeaders()

	if alg := headers.Algorithm(); alg != jwa.RS256 {
		return nil, newError(ErrorCodeInvalidAlgorithm,
			fmt.Sprintf("Unsupported jwt algorithm %q, expected %q", alg, jwa.RS256), nil)
	}

	kid := headers.KeyID()
	if kid == "" {
		return nil, newError(ErrorCodeTokenMalformed, "Jwt header does not contain a kid", nil)
	}

	key, err := v.keys.LookupKey(ctx, kid)
	if err != nil {
		return nil, newError(ErrorCodeJWKSKeyNotFound,
			fmt.Sprintf("Error while resolving signing key for kid %q", kid), err)
	}

	token, err := jwt.Parse(
		[]byte(accessToken),
		jwt.WithKey(jwa.RS256, key),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.clockSkew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}

	if token.Issuer() != v.issuer {
		return nil, newError(ErrorCodeInvalidIssuer,
			fmt.Sprintf("issuer %s does not match expected issuer: %s", token.Issuer(), v.issuer), nil)
	}

	claims, err := token.AsMap(ctx)
	if err != nil {
		return nil, newError(ErrorCodeTokenMalformed, "Jwt cannot be parsed", err)
	}

	if v.clientID != "" {
		if cid, _ := claims["cid"].(string); cid != v.clientID {
			return nil, newError(ErrorCodeInvalidClaims,
				fmt.Sprintf("claim 'cid' value '%s' does not match expected value '%s'", cid, v.clientID), nil)
		}
	}

	for _, assertion := range v.assertions {
		if err := assertion.check(claims); err != nil {
			return nil, newError(ErrorCodeInvalidClaims, err.Error(), nil)
		}
	}

	header, err := headers.AsMap(ctx)
	if err != nil {
		return nil, newError(ErrorCodeTokenMalformed, "Jwt cannot be parsed", err)
	}

	return &Jwt{Header: header, Claims: claims, raw: accessToken}, nil
}

func classifyParseError(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired()):
		return newError(ErrorCodeTokenExpired, "Jwt is expired", err)
	case errors.Is(err, jwt.ErrTokenNotYetValid()):
		return newError(ErrorCodeTokenNotYetValid, "Jwt not yet valid", err)
	case errors.Is(err, jwt.ErrInvalidIssuedAt()):
		return newError(ErrorCodeTokenNotYetValid, "Jwt issued in the future", err)
	case jwt.IsValidationError(err):
		return newError(ErrorCodeInvalidClaims, "Jwt claims are invalid", err)
	default:
		return newError(ErrorCodeInvalidSignature, "Signature verification failed", err)
	}
}
