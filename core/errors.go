package core

import (
	"errors"
	"fmt"
	"strings"
)

// MissingIssuerMessage is recorded when the configuration has no issuer.
const MissingIssuerMessage = "You are missing your issuer url. This is a required attribute."

// Sentinel errors returned by Authenticate.
var (
	// ErrJWTMissing is returned when the request carries no bearer token.
	ErrJWTMissing = errors.New("jwt missing")

	// ErrJWTInvalid is returned, wrapped in a *VerificationError, when the
	// verifier rejects the token.
	ErrJWTInvalid = errors.New("jwt invalid")

	// ErrConfigInvalid is returned, wrapped in a *ConfigError, when the
	// middleware was built from an invalid configuration.
	ErrConfigInvalid = errors.New("configuration invalid")

	// ErrIdentityNotFound is returned when no identity is stored in a context.
	ErrIdentityNotFound = errors.New("identity not found in context")
)

// ConfigError carries the configuration errors collected at construction.
type ConfigError struct {
	Errors []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfigInvalid, strings.Join(e.Errors, "; "))
}

// Is allows the error to support equality to ErrConfigInvalid.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigInvalid
}

// VerificationError wraps the error returned by the verifier.
type VerificationError struct {
	Details error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrJWTInvalid, e.Details)
}

// Message returns the verifier's own message, without the ErrJWTInvalid
// prefix.
func (e *VerificationError) Message() string {
	return e.Details.Error()
}

// Is allows the error to support equality to ErrJWTInvalid.
func (e *VerificationError) Is(target error) bool {
	return target == ErrJWTInvalid
}

// Unwrap allows the error to support equality to the underlying error and
// not just ErrJWTInvalid.
func (e *VerificationError) Unwrap() error {
	return e.Details
}
