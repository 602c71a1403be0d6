package core

import (
	"errors"
	"maps"
	"net/http"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwtverifier/go-okta-jwt-middleware/validation"
	"github.com/jwtverifier/go-okta-jwt-middleware/verifier"
)

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

const instrumentationName = "github.com/jwtverifier/go-okta-jwt-middleware"

// New creates a Core from cfg.
//
// Only option errors are returned. Configuration problems are recorded and
// reported on every request through Authenticate:
//
//	c, err := core.New(cfg, core.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !c.Ready() {
//	    log.Println(c.Errors())
//	}
func New(cfg Config, opts ...Option) (*Core, error) {
	c := &Core{
		logger: discardLogger(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.tracerProvider == nil {
		c.tracerProvider = otel.GetTracerProvider()
	}
	c.tracer = c.tracerProvider.Tracer(instrumentationName)

	if c.factory == nil {
		c.factory = c.defaultFactory
	}

	c.config = cfg
	c.config.AssertClaims = maps.Clone(cfg.AssertClaims)
	c.state = c.construct()
	return c, nil
}

func (c *Core) defaultFactory(cfg verifier.Config) (AccessTokenVerifier, error) {
	opts := append([]verifier.Option{verifier.WithLogger(c.logger)}, c.verifierOptions...)
	return verifier.New(cfg, opts...)
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithTracerProvider sets the provider for verification spans. The default
// is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Core) error {
		if tp == nil {
			return errors.New("tracer provider cannot be nil")
		}
		c.tracerProvider = tp
		return nil
	}
}

// WithMetrics records request outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Core) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = m
		return nil
	}
}

// WithVerifierFactory replaces the function that builds the verifier from
// the forwarded configuration.
func WithVerifierFactory(factory VerifierFactory) Option {
	return func(c *Core) error {
		if factory == nil {
			return errors.New("verifier factory cannot be nil")
		}
		c.factory = factory
		return nil
	}
}

// WithVerifierOptions passes options to the default verifier factory.
func WithVerifierOptions(opts ...verifier.Option) Option {
	return func(c *Core) error {
		c.verifierOptions = append(c.verifierOptions, opts...)
		return nil
	}
}

// WithHTTPClient sets the client used by the default verifier for discovery
// and key set requests.
func WithHTTPClient(client *http.Client) Option {
	return WithVerifierOptions(verifier.WithHTTPClient(client))
}

// WithValidationOptions customises the configuration assertions, for example
// with validation.WithIssuerAssertion.
func WithValidationOptions(opts ...validation.Option) Option {
	return func(c *Core) error {
		c.validation = append(c.validation, opts...)
		return nil
	}
}
