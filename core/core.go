package core

import (
	"context"
	"io"
	"maps"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwtverifier/go-okta-jwt-middleware/validation"
	"github.com/jwtverifier/go-okta-jwt-middleware/verifier"
)

// Config is the middleware configuration.
type Config struct {
	// Issuer is the authorization server URL, for example
	// https://example.okta.com/oauth2/default. Required.
	Issuer string `koanf:"issuer"`

	// ClientID is the expected cid claim. The remaining fields are only
	// forwarded to the verifier when ClientID is set.
	ClientID string `koanf:"client_id"`

	// AssertClaims maps claim names, or "<claim>.includes", to expected values.
	AssertClaims map[string]any `koanf:"assert_claims"`

	// CacheMaxAge bounds how long a fetched key set is reused.
	CacheMaxAge time.Duration `koanf:"cache_max_age"`

	// JWKSRequestsPerMinute limits key set fetches.
	JWKSRequestsPerMinute int `koanf:"jwks_requests_per_minute"`

	Testing TestingConfig `koanf:"testing"`
}

// TestingConfig relaxes checks that only make sense against a real
// authorization server.
type TestingConfig struct {
	// DisableHTTPSCheck allows a plain http issuer.
	DisableHTTPSCheck bool `koanf:"disable_https_check"`
}

// AccessTokenVerifier verifies a raw access token.
type AccessTokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*verifier.Jwt, error)
}

// VerifierFactory builds the verifier from the forwarded configuration.
type VerifierFactory func(cfg verifier.Config) (AccessTokenVerifier, error)

// TokenSource returns the raw token of the current request. An empty string
// means no token was sent.
type TokenSource func() (string, error)

// state is the result of construction: either ready or invalid.
type state interface {
	isState()
}

type ready struct {
	verifier       AccessTokenVerifier
	verifierConfig verifier.Config
}

type invalid struct {
	errors validation.ErrorList
}

func (ready) isState()   {}
func (invalid) isState() {}

// Core is the framework-agnostic access token engine.
type Core struct {
	config Config
	state  state

	logger          logrus.FieldLogger
	tracerProvider  trace.TracerProvider
	tracer          trace.Tracer
	metrics         *Metrics
	factory         VerifierFactory
	verifierOptions []verifier.Option
	validation      []validation.Option
}

func (c *Core) construct() state {
	errs := c.validate()
	if !errs.Empty() {
		c.logger.WithField("errors", []string(errs)).Error("invalid access token middleware configuration")
		return invalid{errors: errs}
	}

	vcfg := verifierConfig(c.config)
	v, err := c.factory(vcfg)
	if err != nil {
		c.logger.WithError(err).Error("could not create access token verifier")
		return invalid{errors: append(errs, err.Error())}
	}

	c.logger.WithFields(logrus.Fields{
		"issuer":    vcfg.Issuer,
		"client_id": vcfg.ClientID,
	}).Debug("access token middleware ready")
	return ready{verifier: v, verifierConfig: vcfg}
}

func (c *Core) validate() validation.ErrorList {
	var errs validation.ErrorList
	if c.config.Issuer == "" {
		errs = append(errs, MissingIssuerMessage)
	}

	opts := append([]validation.Option{
		validation.WithIssuerOptions(validation.IssuerOptions{
			DisableHTTPSCheck: c.config.Testing.DisableHTTPSCheck,
		}),
	}, c.validation...)
	v := validation.New(opts...)

	errs = v.Issuer(errs, c.config.Issuer)
	return v.ClientID(errs, c.config.ClientID)
}

// verifierConfig holds back everything but the issuer unless a client ID is
// configured.
func verifierConfig(cfg Config) verifier.Config {
	vcfg := verifier.Config{Issuer: cfg.Issuer}
	if cfg.ClientID == "" {
		return vcfg
	}

	vcfg.ClientID = cfg.ClientID
	if cfg.AssertClaims != nil {
		vcfg.AssertClaims = maps.Clone(cfg.AssertClaims)
	}
	if cfg.CacheMaxAge > 0 {
		vcfg.CacheMaxAge = cfg.CacheMaxAge
	}
	if cfg.JWKSRequestsPerMinute > 0 {
		vcfg.JWKSRequestsPerMinute = cfg.JWKSRequestsPerMinute
	}
	return vcfg
}

// Config returns a copy of the configuration the Core was built from.
func (c *Core) Config() Config {
	cfg := c.config
	cfg.AssertClaims = maps.Clone(c.config.AssertClaims)
	return cfg
}

// Ready reports whether the configuration was valid and a verifier exists.
func (c *Core) Ready() bool {
	_, ok := c.state.(ready)
	return ok
}

// Errors returns the configuration errors collected at construction. It is
// empty when the Core is ready.
func (c *Core) Errors() []string {
	s, ok := c.state.(invalid)
	if !ok {
		return nil
	}
	return append([]string(nil), s.errors...)
}

// VerifierConfig returns the configuration forwarded to the verifier. The
// second result is false when the Core is not ready.
func (c *Core) VerifierConfig() (verifier.Config, bool) {
	s, ok := c.state.(ready)
	if !ok {
		return verifier.Config{}, false
	}
	vcfg := s.verifierConfig
	vcfg.AssertClaims = maps.Clone(vcfg.AssertClaims)
	return vcfg, true
}

// Authenticate resolves the identity for a request.
//
// An authenticated identity already present in ctx is returned unchanged and
// extract is never called. Otherwise the configuration state is checked, the
// token is read through extract and handed to the verifier. An error from
// extract is treated like an absent token.
func (c *Core) Authenticate(ctx context.Context, extract TokenSource) (*Identity, error) {
	if identity, ok := authenticatedIdentity(ctx); ok {
		c.metrics.request(OutcomePreauthenticated)
		return identity, nil
	}

	switch s := c.state.(type) {
	case invalid:
		c.metrics.request(OutcomeConfigInvalid)
		return nil, &ConfigError{Errors: append([]string(nil), s.errors...)}

	case ready:
		token, err := extract()
		if err != nil {
			c.logger.WithError(err).Debug("could not extract token")
			token = ""
		}
		if token == "" {
			c.metrics.request(OutcomeMissing)
			return nil, ErrJWTMissing
		}
		return c.verify(ctx, s.verifier, token)
	}

	panic("core: unknown construction state")
}

func (c *Core) verify(ctx context.Context, v AccessTokenVerifier, token string) (*Identity, error) {
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	start := time.Now()
	jwt, err := v.VerifyAccessToken(ctx, token)
	duration := time.Since(start)

	if err != nil {
		c.metrics.verification(OutcomeInvalid, duration)
		span.SetAttributes(attribute.String(outcomeKey, OutcomeInvalid))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"duration": duration,
		}).Warn("access token rejected")
		return nil, &VerificationError{Details: err}
	}

	c.metrics.verification(OutcomeVerified, duration)
	span.SetAttributes(attribute.String(outcomeKey, OutcomeVerified))
	span.SetStatus(codes.Ok, "")
	c.logger.WithField("duration", duration).Debug("access token verified")
	return &Identity{Token: jwt, IsAuthenticated: true}, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
