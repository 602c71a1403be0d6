/*
Package verifier verifies Okta access tokens.

A Verifier is built from the issuer URL of an Okta authorization server and
optionally a client ID plus claim assertions:

	v, err := verifier.New(verifier.Config{
	    Issuer:   "https://example.okta.com/oauth2/default",
	    ClientID: "0oa1b2c3d4",
	    AssertClaims: map[string]any{
	        "aud":             "api://default",
	        "groups.includes": []any{"Everyone"},
	    },
	})
	if err != nil {
	    log.Fatal(err)
	}

	jwt, err := v.VerifyAccessToken(ctx, accessToken)
	if err != nil {
	    // err is a *verifier.Error; err.Error() is safe to show to the caller
	}
	fmt.Println(jwt.Claims["sub"])

# Verification

Tokens must be RS256 signed and carry a kid header. Signing keys are fetched
from <issuer>/v1/keys (or the jwks_uri of the discovery document when
WithDiscovery is used) and cached for Config.CacheMaxAge, one hour by default.
JWKS requests are limited to Config.JWKSRequestsPerMinute, ten by default.

After the signature, the time based claims are checked with a two minute
clock skew, iss must equal the configured issuer, and when a client ID is
configured cid must equal it.

# Claim assertions

Each AssertClaims entry is either a plain claim name, compared for equality,
or "<claim>.includes", which requires an array claim to contain the expected
value (or every value of an expected array). Any other operator is rejected
by New.
*/
package verifier
