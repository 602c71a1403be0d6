/*
Package jwks fetches and caches the JSON Web Key Set of a single issuer.

The CachingProvider keeps the last fetched key set for a configurable max age
(one hour by default) and limits how often the JWKS endpoint may be hit
(ten requests per minute by default). When a token references a key ID that is
not in the cached set, LookupKey refreshes the set once, subject to the same
limit, so key rotations are picked up without hammering the issuer.

# Usage

	provider, err := jwks.NewCachingProvider(
	    jwks.WithJWKSURI("https://example.okta.com/oauth2/default/v1/keys"),
	    jwks.WithCacheMaxAge(30*time.Minute),
	    jwks.WithRequestsPerMinute(5),
	)
	if err != nil {
	    log.Fatal(err)
	}

	key, err := provider.LookupKey(ctx, kid)

The JWKS location can also be discovered from the issuer's
.well-known/openid-configuration document with WithDiscovery.
*/
package jwks
