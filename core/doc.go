/*
Package core implements the transport independent part of the access token
middleware. The net/http middleware in the root package and the gin, echo and
gRPC adapters under framework/ are thin layers over a Core.

# Construction

A Core is built once from a Config. The issuer is required and validated; the
client ID is optional and only decides which settings are forwarded to the
verifier:

	c, err := core.New(core.Config{
	    Issuer:   "https://example.okta.com/oauth2/default",
	    ClientID: "0oa1b2c3d4",
	})

New only fails on invalid options. An invalid Config yields a Core that
rejects every request with a *ConfigError listing the problems, so a
misconfigured service answers 400 instead of refusing to start.

# Requests

Authenticate runs the per request flow:

  - a context that already carries an authenticated Identity is accepted as is
  - a Core built from an invalid Config returns *ConfigError
  - a missing token returns ErrJWTMissing
  - a token rejected by the verifier returns *VerificationError
  - otherwise the verified Identity is returned

Adapters store the Identity with SetIdentity; handlers read it back with
GetIdentity.
*/
package core
