/*
Package jwtmiddleware provides net/http middleware that authenticates requests
with Okta access tokens.

The middleware follows the Core-Adapter pattern: the core package holds the
transport independent logic and this package adapts it to net/http. Adapters
for gin, echo and gRPC live under framework/.

# Quick Start

	middleware, err := jwtmiddleware.New(jwtmiddleware.Config{
	    Issuer:   "https://example.okta.com/oauth2/default",
	    ClientID: "0oa1b2c3d4",
	    AssertClaims: map[string]any{
	        "aud":             "api://default",
	        "groups.includes": []string{"Everyone"},
	    },
	})
	if err != nil {
	    log.Fatal(err)
	}
	http.Handle("/api/", middleware.CheckJWT(apiHandler))

Or, when only the wrapping function is needed:

	protect, err := jwtmiddleware.Middleware(cfg)
	http.Handle("/api/", protect(apiHandler))

The client ID is optional. When it is empty only the issuer is passed to the
verifier, and AssertClaims, CacheMaxAge and JWKSRequestsPerMinute are ignored.

# Accessing the Identity

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    identity, err := jwtmiddleware.GetIdentity(r.Context())
	    if err != nil {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintln(w, identity.Claims()["sub"])
	}

A request whose context already holds an authenticated identity, set with
WithIdentity by an earlier handler, passes without a token.

# Responses

  - invalid configuration: 400, {"errors":[...]}
  - no bearer token: 401, Unauthorized
  - token rejected by the verifier: 400, the verifier message

Use WithErrorHandler to change them.

# Token Extraction

AuthHeaderTokenExtractor is the default. CookieTokenExtractor,
ParameterTokenExtractor and MultiTokenExtractor cover other transports:

	jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
	    jwtmiddleware.AuthHeaderTokenExtractor,
	    jwtmiddleware.CookieTokenExtractor("access_token"),
	))

# Observability

The middleware logs through logrus (WithLogger), traces verifications with
OpenTelemetry (WithTracerProvider) and counts outcomes in Prometheus
(WithMetrics with core.NewMetrics).
*/
package jwtmiddleware
