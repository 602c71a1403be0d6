// Package oidc resolves the JWKS location of an issuer through the OpenID
// Connect discovery document.
package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

const maxDiscoveryBodySize = 1 << 20

// WellKnownEndpoints holds the well known OIDC endpoints.
type WellKnownEndpoints struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// GetWellKnownEndpointsFromIssuerURL gets the well known endpoints for the
// passed in issuer url. The issuer advertised by the document must match
// issuerURL, ignoring a trailing slash.
func GetWellKnownEndpointsFromIssuerURL(
	ctx context.Context,
	httpClient *http.Client,
	issuerURL url.URL,
) (*WellKnownEndpoints, error) {
	expectedIssuer := issuerURL.String()
	issuerURL.Path = path.Join(issuerURL.Path, ".well-known/openid-configuration")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuerURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get well known endpoints: %w", err)
	}

	r, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not get well known endpoints from url %s: %w", issuerURL.String(), err)
	}
	defer r.Body.Close()

	if r.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from well known endpoint %s", r.StatusCode, issuerURL.String())
	}

	var wkEndpoints WellKnownEndpoints
	if err = json.NewDecoder(io.LimitReader(r.Body, maxDiscoveryBodySize)).Decode(&wkEndpoints); err != nil {
		return nil, fmt.Errorf("could not decode json body when getting well known endpoints: %w", err)
	}

	if wkEndpoints.JWKSURI == "" {
		return nil, fmt.Errorf("well known endpoints from %s do not contain a jwks_uri", issuerURL.String())
	}

	if strings.TrimSuffix(wkEndpoints.Issuer, "/") != strings.TrimSuffix(expectedIssuer, "/") {
		return nil, fmt.Errorf("issuer mismatch: discovery document advertises %q but %q was expected",
			wkEndpoints.Issuer, expectedIssuer)
	}

	return &wkEndpoints, nil
}
