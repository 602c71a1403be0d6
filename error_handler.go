package jwtmiddleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jwtverifier/go-okta-jwt-middleware/core"
)

var (
	// ErrJWTMissing is returned when the request carries no access token.
	ErrJWTMissing = core.ErrJWTMissing

	// ErrJWTInvalid is returned when the access token is rejected.
	ErrJWTInvalid = core.ErrJWTInvalid

	// ErrConfigInvalid is returned when the middleware configuration is
	// invalid.
	ErrConfigInvalid = core.ErrConfigInvalid
)

// ErrorHandler writes the response for a request the middleware rejected.
// The err can be checked with errors.Is against ErrConfigInvalid,
// ErrJWTMissing or ErrJWTInvalid. A custom ErrorHandler MUST write a response:
// the request is not passed on after it returns.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler is used when no handler is set with WithErrorHandler.
//
//   - configuration errors: 400 with {"errors":[...]}
//   - missing token: 401 with the body "Unauthorized"
//   - rejected token: 400 with the verifier message
//   - anything else: 400 with the error text
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var configErr *core.ConfigError
	var verificationErr *core.VerificationError

	switch {
	case errors.As(err, &configErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(configErrorBody{Errors: configErr.Errors})
	case errors.Is(err, ErrJWTMissing):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeText(w, http.StatusUnauthorized, "Unauthorized")
	case errors.As(err, &verificationErr):
		writeText(w, http.StatusBadRequest, verificationErr.Message())
	default:
		writeText(w, http.StatusBadRequest, err.Error())
	}
}

type configErrorBody struct {
	Errors []string `json:"errors"`
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
