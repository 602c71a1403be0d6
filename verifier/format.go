package verifier

import (
	"errors"
	"strings"
)

var (
	// ErrTokenTooLarge is wrapped by the error for a token above maxTokenSize.
	ErrTokenTooLarge = errors.New("token exceeds maximum size")

	// ErrTokenShape is wrapped by the error for a token that is not a three
	// part compact JWS.
	ErrTokenShape = errors.New("token is not a compact JWS")
)

// maxTokenSize bounds the input handed to the JOSE parser. Okta access
// tokens are a few KB.
const maxTokenSize = 64 * 1024

// checkTokenFormat rejects input that cannot be a compact JWS before any
// decoding happens.
func checkTokenFormat(token string) error {
	if len(token) > maxTokenSize {
		return ErrTokenTooLarge
	}
	if strings.Count(token, ".") != 2 {
		return ErrTokenShape
	}
	return nil
}
