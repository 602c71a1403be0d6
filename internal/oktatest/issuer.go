// Package oktatest runs a fake Okta authorization server for tests. It serves
// a discovery document and a JWKS and signs access tokens that validate
// against it.
//
//	issuer := oktatest.NewIssuer(t)
//	token := issuer.Sign(t, map[string]any{"sub": "u1"})
package oktatest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	// AuthServerPath is the path of the authorization server below the
	// server root.
	AuthServerPath = "/oauth2/default"
	// DefaultKeyID is the kid of the key generated by NewIssuer.
	DefaultKeyID = "test-key-1"
)

// Issuer is a fake authorization server.
type Issuer struct {
	server *httptest.Server

	mu      sync.Mutex
	keys    map[string]*rsa.PrivateKey
	signKID string

	keyRequests atomic.Int32
}

// NewIssuer starts an Issuer with one RSA key. It is shut down when the test
// ends.
func NewIssuer(tb testing.TB) *Issuer {
	tb.Helper()

	i := &Issuer{keys: map[string]*rsa.PrivateKey{}}
	i.AddKey(tb, DefaultKeyID)

	mux := http.NewServeMux()
	mux.HandleFunc(AuthServerPath+"/.well-known/openid-configuration", i.handleDiscovery)
	mux.HandleFunc(AuthServerPath+"/v1/keys", i.handleJWKS)

	i.server = httptest.NewServer(mux)
	tb.Cleanup(i.server.Close)

	return i
}

// URL returns the issuer URL, to be used as the configured issuer.
func (i *Issuer) URL() string {
	return i.server.URL + AuthServerPath
}

// Client returns an HTTP client for the issuer server.
func (i *Issuer) Client() *http.Client {
	return i.server.Client()
}

// KeyRequests returns how many times the JWKS was served.
func (i *Issuer) KeyRequests() int {
	return int(i.keyRequests.Load())
}

// AddKey generates a new signing key under kid, publishes it and uses it for
// subsequent signatures.
func (i *Issuer) AddKey(tb testing.TB, kid string) {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate RSA key: %v", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys[kid] = privateKey
	i.signKID = kid
}

// Claims returns a valid claim set for this issuer. The extra claims override
// the defaults.
func (i *Issuer) Claims(extra map[string]any) map[string]any {
	now := time.Now()
	claims := map[string]any{
		"iss": i.URL(),
		"sub": "u1",
		"aud": "api://default",
		"cid": "0oa-test-client",
		"iat": now,
		"exp": now.Add(time.Hour),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return claims
}

// Sign returns an RS256 access token carrying Claims(extra), signed with the
// current key.
func (i *Issuer) Sign(tb testing.TB, extra map[string]any) string {
	tb.Helper()

	i.mu.Lock()
	kid := i.signKID
	key := i.keys[kid]
	i.mu.Unlock()

	return sign(tb, i.Claims(extra), kid, jwa.RS256, key)
}

// SignUnpublished returns a token signed by a key the JWKS does not contain.
func (i *Issuer) SignUnpublished(tb testing.TB, kid string, extra map[string]any) string {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate RSA key: %v", err)
	}
	return sign(tb, i.Claims(extra), kid, jwa.RS256, privateKey)
}

// SignHS256 returns a symmetric token, which Okta never issues.
func (i *Issuer) SignHS256(tb testing.TB, extra map[string]any) string {
	tb.Helper()

	return sign(tb, i.Claims(extra), DefaultKeyID, jwa.HS256, []byte("not-so-secret-not-so-secret-1234"))
}

func sign(tb testing.TB, claims map[string]any, kid string, alg jwa.SignatureAlgorithm, key any) string {
	tb.Helper()

	token := jwt.New()
	for k, v := range claims {
		if err := token.Set(k, v); err != nil {
			tb.Fatalf("failed to set claim %q: %v", k, err)
		}
	}

	headers := jws.NewHeaders()
	if err := headers.Set(jws.KeyIDKey, kid); err != nil {
		tb.Fatalf("failed to set kid: %v", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(alg, key, jws.WithProtectedHeaders(headers)))
	if err != nil {
		tb.Fatalf("failed to sign token: %v", err)
	}
	return string(signed)
}

func (i *Issuer) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"issuer":   i.URL(),
		"jwks_uri": i.URL() + "/v1/keys",
	})
}

func (i *Issuer) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	i.keyRequests.Add(1)

	i.mu.Lock()
	defer i.mu.Unlock()

	set := jwk.NewSet()
	for kid, privateKey := range i.keys {
		key, err := jwk.FromRaw(&privateKey.PublicKey)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = key.Set(jwk.KeyIDKey, kid)
		_ = key.Set(jwk.AlgorithmKey, jwa.RS256)
		_ = key.Set(jwk.KeyUsageKey, "sig")
		_ = set.AddKey(key)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}
