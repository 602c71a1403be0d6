package verifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwtverifier/go-okta-jwt-middleware/internal/oktatest"
	"github.com/jwtverifier/go-okta-jwt-middleware/jwks"
)

func newTestVerifier(t *testing.T, issuer *oktatest.Issuer, cfg Config, opts ...Option) *Verifier {
	t.Helper()

	if cfg.Issuer == "" {
		cfg.Issuer = issuer.URL()
	}
	v, err := New(cfg, append([]Option{WithHTTPClient(issuer.Client())}, opts...)...)
	require.NoError(t, err)
	return v
}

func Test_VerifyAccessToken(t *testing.T) {
	issuer := oktatest.NewIssuer(t)

	testCases := []struct {
		name          string
		config        Config
		token         func(t *testing.T) string
		expectedCode  string
		expectedError string
	}{
		{
			name:  "It accepts a valid token",
			token: func(t *testing.T) string { return issuer.Sign(t, nil) },
		},
		{
			name:   "It accepts a token whose cid matches the client ID",
			config: Config{ClientID: "0oa-test-client"},
			token:  func(t *testing.T) string { return issuer.Sign(t, nil) },
		},
		{
			name:          "It rejects a token whose cid does not match the client ID",
			config:        Config{ClientID: "0oa-other"},
			token:         func(t *testing.T) string { return issuer.Sign(t, nil) },
			expectedCode:  ErrorCodeInvalidClaims,
			expectedError: "claim 'cid' value '0oa-test-client' does not match expected value '0oa-other'",
		},
		{
			name: "It rejects an expired token",
			token: func(t *testing.T) string {
				return issuer.Sign(t, map[string]any{
					"iat": time.Now().Add(-2 * time.Hour),
					"exp": time.Now().Add(-time.Hour),
				})
			},
			expectedCode:  ErrorCodeTokenExpired,
			expectedError: "Jwt is expired",
		},
		{
			name: "It tolerates an expiry within the clock skew",
			token: func(t *testing.T) string {
				return issuer.Sign(t, map[string]any{"exp": time.Now().Add(-time.Minute)})
			},
		},
		{
			name: "It rejects a token that is not active yet",
			token: func(t *testing.T) string {
				return issuer.Sign(t, map[string]any{"nbf": time.Now().Add(time.Hour)})
			},
			expectedCode:  ErrorCodeTokenNotYetValid,
			expectedError: "Jwt not yet valid",
		},
		{
			name: "It rejects a token from another issuer",
			token: func(t *testing.T) string {
				return issuer.Sign(t, map[string]any{"iss": "https://evil.example.com/oauth2/default"})
			},
			expectedCode:  ErrorCodeInvalidIssuer,
			expectedError: "issuer https://evil.example.com/oauth2/default does not match expected issuer",
		},
		{
			name:          "It rejects a token that is not a JWT",
			token:         func(*testing.T) string { return "abc123" },
			expectedCode:  ErrorCodeTokenMalformed,
			expectedError: "Jwt cannot be parsed",
		},
		{
			name:          "It rejects a symmetric token",
			token:         func(t *testing.T) string { return issuer.SignHS256(t, nil) },
			expectedCode:  ErrorCodeInvalidAlgorithm,
			expectedError: `Unsupported jwt algorithm "HS256", expected "RS256"`,
		},
		{
			name:          "It rejects a token signed by an unknown key",
			token:         func(t *testing.T) string { return issuer.SignUnpublished(t, "rogue", nil) },
			expectedCode:  ErrorCodeJWKSKeyNotFound,
			expectedError: `Error while resolving signing key for kid "rogue"`,
		},
		{
			name:          "It rejects a token signed by the wrong key under a known kid",
			token:         func(t *testing.T) string { return issuer.SignUnpublished(t, oktatest.DefaultKeyID, nil) },
			expectedCode:  ErrorCodeInvalidSignature,
			expectedError: "Signature verification failed",
		},
		{
			name:   "It applies equality assertions",
			config: Config{AssertClaims: map[string]any{"aud": "api://default", "ver": 1}},
			token:  func(t *testing.T) string { return issuer.Sign(t, map[string]any{"ver": 1}) },
		},
		{
			name:          "It fails equality assertions",
			config:        Config{AssertClaims: map[string]any{"aud": "api://other"}},
			token:         func(t *testing.T) string { return issuer.Sign(t, nil) },
			expectedCode:  ErrorCodeInvalidClaims,
			expectedError: "claim 'aud' value '[api://default]' does not match expected value 'api://other'",
		},
		{
			name:   "It applies includes assertions",
			config: Config{AssertClaims: map[string]any{"groups.includes": []any{"Everyone", "Admins"}}},
			token: func(t *testing.T) string {
				return issuer.Sign(t, map[string]any{"groups": []string{"Everyone", "Admins", "Other"}})
			},
		},
		{
			name:          "It fails includes assertions",
			config:        Config{AssertClaims: map[string]any{"scp.includes": "email"}},
			token:         func(t *testing.T) string { return issuer.Sign(t, map[string]any{"scp": []string{"openid"}}) },
			expectedCode:  ErrorCodeInvalidClaims,
			expectedError: "claim 'scp' value '[openid]' does not include expected value 'email'",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			v := newTestVerifier(t, issuer, testCase.config)
			token := testCase.token(t)

			jwt, err := v.VerifyAccessToken(context.Background(), token)
			if testCase.expectedError == "" {
				require.NoError(t, err)
				assert.Equal(t, "u1", jwt.Claims["sub"])
				assert.Equal(t, issuer.URL(), jwt.Claims["iss"])
				assert.Equal(t, oktatest.DefaultKeyID, jwt.Header["kid"])
				assert.Equal(t, token, jwt.String())
				return
			}

			require.Error(t, err)
			assert.Nil(t, jwt)
			assert.Contains(t, err.Error(), testCase.expectedError)

			var verifyErr *Error
			require.True(t, errors.As(err, &verifyErr))
			assert.Equal(t, testCase.expectedCode, verifyErr.Code)
		})
	}
}

func Test_VerifierKeyRotation(t *testing.T) {
	issuer := oktatest.NewIssuer(t)
	v := newTestVerifier(t, issuer, Config{JWKSRequestsPerMinute: 5, CacheMaxAge: time.Hour})

	_, err := v.VerifyAccessToken(context.Background(), issuer.Sign(t, nil))
	require.NoError(t, err)
	_, err = v.VerifyAccessToken(context.Background(), issuer.Sign(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, issuer.KeyRequests())

	issuer.AddKey(t, "test-key-2")

	jwt, err := v.VerifyAccessToken(context.Background(), issuer.Sign(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "test-key-2", jwt.Header["kid"])
	assert.Equal(t, 2, issuer.KeyRequests())
}

func Test_VerifierDiscovery(t *testing.T) {
	issuer := oktatest.NewIssuer(t)
	v := newTestVerifier(t, issuer, Config{}, WithDiscovery())

	_, err := v.VerifyAccessToken(context.Background(), issuer.Sign(t, nil))
	require.NoError(t, err)
}

func Test_VerifierClock(t *testing.T) {
	issuer := oktatest.NewIssuer(t)
	token := issuer.Sign(t, map[string]any{"exp": time.Now().Add(time.Hour)})

	v := newTestVerifier(t, issuer, Config{},
		WithClock(func() time.Time { return time.Now().Add(3 * time.Hour) }),
		WithClockSkew(0),
	)

	_, err := v.VerifyAccessToken(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, "Jwt is expired", err.Error())
}

type staticKeys struct {
	err error
}

func (s staticKeys) LookupKey(context.Context, string) (jwk.Key, error) {
	return nil, s.err
}

func Test_VerifierKeyProvider(t *testing.T) {
	issuer := oktatest.NewIssuer(t)
	v, err := New(Config{Issuer: issuer.URL()}, WithKeyProvider(staticKeys{err: jwks.ErrRateLimited}))
	require.NoError(t, err)

	_, err = v.VerifyAccessToken(context.Background(), issuer.Sign(t, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, jwks.ErrRateLimited)
	assert.Equal(t, 0, issuer.KeyRequests())
}

func Test_New(t *testing.T) {
	testCases := []struct {
		name          string
		config        Config
		opts          []Option
		expectedError string
	}{
		{
			name:          "missing issuer",
			expectedError: "issuer is required",
		},
		{
			name:          "unparsable issuer",
			config:        Config{Issuer: "https://exa mple.com/%zz"},
			expectedError: "invalid issuer URL",
		},
		{
			name:          "unsupported assertion operator",
			config:        Config{Issuer: "https://example.okta.com", AssertClaims: map[string]any{"groups.excludes": "x"}},
			expectedError: "operator: 'excludes' is not supported in assertClaims",
		},
		{
			name:          "nil HTTP client",
			config:        Config{Issuer: "https://example.okta.com"},
			opts:          []Option{WithHTTPClient(nil)},
			expectedError: "HTTP client cannot be nil",
		},
		{
			name:          "negative clock skew",
			config:        Config{Issuer: "https://example.okta.com"},
			opts:          []Option{WithClockSkew(-time.Second)},
			expectedError: "clock skew cannot be negative",
		},
		{
			name:          "negative requests per minute",
			config:        Config{Issuer: "https://example.okta.com", JWKSRequestsPerMinute: -1},
			expectedError: "requests per minute cannot be negative",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := New(testCase.config, testCase.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), testCase.expectedError)
		})
	}
}
