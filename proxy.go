package jwtmiddleware

import (
	"net"
	"net/http"
	"strings"
)

// TrustedProxyConfig defines which reverse proxy headers are trusted when a
// full URL given to WithExclusionUrls is compared with the request.
//
// Only enable it behind a proxy that strips client supplied forwarded
// headers. Otherwise a client can skip authentication by forging them.
type TrustedProxyConfig struct {
	// TrustXForwardedProto enables X-Forwarded-Proto.
	TrustXForwardedProto bool

	// TrustXForwardedHost enables X-Forwarded-Host.
	TrustXForwardedHost bool

	// TrustXForwardedPrefix enables X-Forwarded-Prefix.
	TrustXForwardedPrefix bool

	// TrustForwarded enables the RFC 7239 Forwarded header. It takes
	// precedence over X-Forwarded-Proto and X-Forwarded-Host.
	TrustForwarded bool
}

// WithTrustedProxies configures the forwarded headers trusted for exclusion
// matching. A nil config trusts nothing.
//
// Example:
//
//	middleware, err := jwtmiddleware.New(cfg,
//	    jwtmiddleware.WithExclusionUrls([]string{"https://api.example.com/healthz"}),
//	    jwtmiddleware.WithTrustedProxies(&jwtmiddleware.TrustedProxyConfig{
//	        TrustXForwardedProto: true,
//	        TrustXForwardedHost:  true,
//	    }),
//	)
func WithTrustedProxies(config *TrustedProxyConfig) Option {
	return func(m *JWTMiddleware) error {
		m.trustedProxies = config
		return nil
	}
}

// WithStandardProxy trusts X-Forwarded-Proto and X-Forwarded-Host, as set by
// Nginx, Apache or HAProxy.
func WithStandardProxy() Option {
	return WithTrustedProxies(&TrustedProxyConfig{
		TrustXForwardedProto: true,
		TrustXForwardedHost:  true,
	})
}

// WithAPIGatewayProxy additionally trusts X-Forwarded-Prefix, for gateways
// that mount the service below a path prefix.
func WithAPIGatewayProxy() Option {
	return WithTrustedProxies(&TrustedProxyConfig{
		TrustXForwardedProto:  true,
		TrustXForwardedHost:   true,
		TrustXForwardedPrefix: true,
	})
}

func exclusionMatcher(exclusions []string, proxies *TrustedProxyConfig) ExclusionURLHandler {
	return func(r *http.Request) bool {
		path := r.URL.Path
		fullURL := requestURL(r, proxies)

		for _, exclusion := range exclusions {
			if exclusion == path || exclusion == fullURL {
				return true
			}
		}
		return false
	}
}

// requestURL rebuilds the URL the client used, honouring only the trusted
// forwarded headers. Default ports are dropped.
func requestURL(r *http.Request, config *TrustedProxyConfig) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	host := r.Host
	prefix := ""

	if config != nil {
		var forwardedScheme, forwardedHost string
		if config.TrustForwarded {
			forwardedScheme, forwardedHost = parseForwardedHeader(r.Header.Get("Forwarded"))
		}

		if forwardedScheme != "" {
			scheme = forwardedScheme
		} else if proto := leftmost(r.Header.Get("X-Forwarded-Proto")); config.TrustXForwardedProto && proto != "" {
			scheme = proto
		}

		if forwardedHost != "" {
			host = forwardedHost
		} else if h := leftmost(r.Header.Get("X-Forwarded-Host")); config.TrustXForwardedHost && h != "" {
			host = h
		}

		if p := leftmost(r.Header.Get("X-Forwarded-Prefix")); config.TrustXForwardedPrefix && p != "" {
			prefix = "/" + strings.Trim(p, "/")
		}
	}

	u := scheme + "://" + stripDefaultPort(host, scheme) + prefix + r.URL.Path
	if r.URL.RawQuery != "" {
		u += "?" + r.URL.RawQuery
	}
	return u
}

// leftmost returns the value closest to the client in a comma separated
// header.
func leftmost(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(first)
}

// parseForwardedHeader reads proto and host from the first element of an
// RFC 7239 header such as `for=192.0.2.60;proto=https;host=api.example.com`.
func parseForwardedHeader(forwarded string) (scheme, host string) {
	for _, part := range strings.Split(leftmost(forwarded), ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"`)
		switch strings.ToLower(key) {
		case "proto":
			scheme = value
		case "host":
			host = value
		}
	}
	return scheme, host
}

func stripDefaultPort(host, scheme string) string {
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}
