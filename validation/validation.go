// Package validation checks the configuration handed to the middleware before
// any verifier is built.
//
// Validation never fails loudly. Each check takes the error list collected so
// far and returns it, possibly extended, so independent validation runs never
// share state:
//
//	v := validation.New()
//	var errs validation.ErrorList
//	errs = v.Issuer(errs, cfg.Issuer)
//	errs = v.ClientID(errs, cfg.ClientID)
//	if !errs.Empty() {
//	    // configuration rejected
//	}
package validation

import (
	"fmt"
	"strings"
)

// ErrorList is an ordered list of human readable configuration errors.
// An empty list means the configuration is acceptable.
type ErrorList []string

// Empty reports whether no error was recorded.
func (l ErrorList) Empty() bool {
	return len(l) == 0
}

func (l ErrorList) String() string {
	return strings.Join(l, "; ")
}

// Assertion validates a single configuration value. It returns an error
// describing the problem, or nil when the value is acceptable.
type Assertion func(value string) error

// Validator runs the issuer and client ID assertions.
type Validator struct {
	assertIssuer   Assertion
	assertClientID Assertion
}

// Option configures a Validator.
type Option func(*Validator)

// WithIssuerAssertion replaces the issuer assertion.
func WithIssuerAssertion(a Assertion) Option {
	return func(v *Validator) {
		if a != nil {
			v.assertIssuer = a
		}
	}
}

// WithClientIDAssertion replaces the client ID assertion.
func WithClientIDAssertion(a Assertion) Option {
	return func(v *Validator) {
		if a != nil {
			v.assertClientID = a
		}
	}
}

// WithIssuerOptions configures the default issuer assertion.
func WithIssuerOptions(opts IssuerOptions) Option {
	return func(v *Validator) {
		v.assertIssuer = func(issuer string) error {
			return AssertIssuer(issuer, opts)
		}
	}
}

// New returns a Validator using AssertIssuer and AssertClientID unless
// replaced through options.
func New(opts ...Option) *Validator {
	v := &Validator{
		assertIssuer: func(issuer string) error {
			return AssertIssuer(issuer, IssuerOptions{})
		},
		assertClientID: AssertClientID,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Issuer validates the issuer. The issuer is required, so a failed assertion
// is appended to errs.
func (v *Validator) Issuer(errs ErrorList, issuer string) ErrorList {
	return run(errs, v.assertIssuer, issuer, false)
}

// ClientID validates the client ID. The client ID is optional: a failed
// assertion is swallowed and errs is returned untouched. Only the presence of
// the client ID decides which verifier features are enabled.
func (v *Validator) ClientID(errs ErrorList, clientID string) ErrorList {
	return run(errs, v.assertClientID, clientID, true)
}

func run(errs ErrorList, assert Assertion, value string, optional bool) (out ErrorList) {
	out = errs
	defer func() {
		// A misbehaving assertion is recorded the same way as a rejection.
		if r := recover(); r != nil && !optional {
			out = appendClipped(errs, fmt.Sprint(r))
		}
	}()

	if err := assert(value); err != nil && !optional {
		return appendClipped(errs, err.Error())
	}
	return errs
}

// appendClipped never writes into the backing array of errs, so a list handed
// to two validation runs cannot be mutated by either.
func appendClipped(errs ErrorList, msg string) ErrorList {
	return append(errs[:len(errs):len(errs)], msg)
}
