package jwks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jwtverifier/go-okta-jwt-middleware/internal/oidc"
)

const (
	// DefaultCacheMaxAge is how long a key set is cached when no max age is configured.
	DefaultCacheMaxAge = time.Hour
	// DefaultRequestsPerMinute is the JWKS request budget when none is configured.
	DefaultRequestsPerMinute = 10

	maxJWKSBodySize = 1 << 20
)

var (
	// ErrRateLimited is returned when the key set has to be fetched but the
	// request budget for the current minute is spent.
	ErrRateLimited = errors.New("JWKS request rate limit exceeded")

	// ErrKeyNotFound is returned when no key matches the requested key ID,
	// even after refreshing the key set.
	ErrKeyNotFound = errors.New("key not found in JWKS")
)

// CachingProvider fetches the key set of one issuer and keeps it in memory.
// It is safe for concurrent use.
type CachingProvider struct {
	jwksURI           string
	issuerURL         *url.URL
	httpClient        *http.Client
	cacheMaxAge       time.Duration
	requestsPerMinute int
	logger            logrus.FieldLogger
	now               func() time.Time

	limiter *rate.Limiter

	mu        sync.RWMutex
	set       jwk.Set
	expiresAt time.Time
	// fetchMu ensures only one fetch runs at a time.
	fetchMu sync.Mutex
}

// NewCachingProvider builds and returns a new CachingProvider.
// Either WithJWKSURI or WithDiscovery is required.
func NewCachingProvider(opts ...Option) (*CachingProvider, error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	p := &CachingProvider{
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		cacheMaxAge:       DefaultCacheMaxAge,
		requestsPerMinute: DefaultRequestsPerMinute,
		logger:            logger,
		now:               time.Now,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if p.jwksURI == "" && p.issuerURL == nil {
		return nil, errors.New("JWKS URI is required (use WithJWKSURI or WithDiscovery)")
	}

	p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(p.requestsPerMinute)), p.requestsPerMinute)

	return p, nil
}

// KeySet returns the cached key set, fetching it when it is missing or older
// than the configured max age. When a refresh is refused by the rate limiter
// the stale set is returned.
func (p *CachingProvider) KeySet(ctx context.Context) (jwk.Set, error) {
	if set, ok := p.cached(); ok {
		return set, nil
	}

	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()

	// Another goroutine may have fetched while we waited.
	if set, ok := p.cached(); ok {
		return set, nil
	}

	set, err := p.fetch(ctx)
	if err != nil {
		if stale := p.stale(); stale != nil && errors.Is(err, ErrRateLimited) {
			p.logger.WithError(err).Warn("serving stale JWKS")
			return stale, nil
		}
		return nil, err
	}
	return set, nil
}

// LookupKey returns the key with the given key ID. An unknown key ID forces
// one refresh of the key set, subject to the rate limit.
func (p *CachingProvider) LookupKey(ctx context.Context, kid string) (jwk.Key, error) {
	set, err := p.KeySet(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := set.LookupKeyID(kid); ok {
		return key, nil
	}

	p.logger.WithField("kid", kid).Debug("unknown key ID, refreshing JWKS")

	set, err = p.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrKeyNotFound, kid, err)
	}
	if key, ok := set.LookupKeyID(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
}

// Refresh fetches the key set regardless of the cache state.
func (p *CachingProvider) Refresh(ctx context.Context) (jwk.Set, error) {
	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()

	return p.fetch(ctx)
}

func (p *CachingProvider) cached() (jwk.Set, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.set == nil || !p.now().Before(p.expiresAt) {
		return nil, false
	}
	return p.set, true
}

func (p *CachingProvider) stale() jwk.Set {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.set
}

// fetch must be called with fetchMu held.
func (p *CachingProvider) fetch(ctx context.Context) (jwk.Set, error) {
	if !p.limiter.Allow() {
		return nil, ErrRateLimited
	}

	jwksURI, err := p.resolveJWKSURI(ctx)
	if err != nil {
		return nil, err
	}

	set, err := p.fetchKeySet(ctx, jwksURI)
	if err != nil {
		p.logger.WithError(err).WithField("jwks_uri", jwksURI).Error("could not fetch JWKS")
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}

	p.mu.Lock()
	p.set = set
	p.expiresAt = p.now().Add(p.cacheMaxAge)
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"jwks_uri": jwksURI,
		"keys":     set.Len(),
	}).Debug("fetched JWKS")

	return set, nil
}

// resolveJWKSURI must be called with fetchMu held. A successful discovery is
// remembered; a failed one is retried on the next fetch.
func (p *CachingProvider) resolveJWKSURI(ctx context.Context) (string, error) {
	if p.jwksURI != "" {
		return p.jwksURI, nil
	}

	wkEndpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, p.httpClient, *p.issuerURL)
	if err != nil {
		return "", fmt.Errorf("failed to discover JWKS URI: %w", err)
	}
	p.jwksURI = wkEndpoints.JWKSURI

	return p.jwksURI, nil
}

func (p *CachingProvider) fetchKeySet(ctx context.Context, jwksURI string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request returned status %d, expected 200", resp.StatusCode)
	}

	set, err := jwk.ParseReader(io.LimitReader(resp.Body, maxJWKSBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	return set, nil
}
