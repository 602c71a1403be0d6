package validation

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	findDomainURL         = "https://bit.ly/finding-okta-domain"
	findAppCredentialsURL = "https://bit.ly/finding-okta-app-credentials"

	copyDomainMessage = "You can copy your domain from the Okta Developer Console. " +
		"Follow these instructions to find it: " + findDomainURL
	copyCredentialsMessage = "You can copy it from the Okta Developer Console in the details " +
		"for the Application you created. Follow these instructions to find it: " + findAppCredentialsURL
)

var (
	isHTTPS        = regexp.MustCompile(`^https://`)
	hasDomainAdmin = regexp.MustCompile(`-admin\.(okta|oktapreview|okta-emea)\.com`)
	hasDomainTypo  = regexp.MustCompile(`(\.com\.com)|(://.*){2,}`)
	hasPlaceholder = regexp.MustCompile(`\{yourOktaDomain\}`)
	hasClientIDTpl = regexp.MustCompile(`\{clientId\}`)
)

// AssertionError is returned by the assertion functions when a configuration
// value is rejected.
type AssertionError struct {
	Field   string
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// ErrAssertionFailed can be used with errors.Is to detect any AssertionError.
var ErrAssertionFailed = errors.New("configuration assertion failed")

// Is allows the error to support equality to ErrAssertionFailed.
func (e *AssertionError) Is(target error) bool {
	return target == ErrAssertionFailed
}

// IssuerOptions tweak the issuer assertion.
type IssuerOptions struct {
	// DisableHTTPSCheck allows plain http issuers. Only meant for tests
	// and local development.
	DisableHTTPSCheck bool
}

// AssertIssuer checks that issuer looks like an Okta authorization server URL.
func AssertIssuer(issuer string, opts IssuerOptions) error {
	switch {
	case issuer == "":
		return issuerError("Your Okta URL is missing. " + copyDomainMessage)
	case !opts.DisableHTTPSCheck && !isHTTPS.MatchString(issuer):
		return issuerError(fmt.Sprintf("Your Okta URL must start with https. Current value: %s. %s", issuer, copyDomainMessage))
	case hasPlaceholder.MatchString(issuer):
		return issuerError("Replace {yourOktaDomain} with your Okta domain. " + copyDomainMessage)
	case hasDomainAdmin.MatchString(issuer):
		return issuerError(fmt.Sprintf("Your Okta domain should not contain -admin. Current value: %s. %s", issuer, copyDomainMessage))
	case hasDomainTypo.MatchString(issuer):
		return issuerError(fmt.Sprintf("It looks like there's a typo in your Okta domain. Current value: %s. %s", issuer, copyDomainMessage))
	}
	return nil
}

// AssertClientID checks that clientID is set and is not the documentation
// placeholder.
func AssertClientID(clientID string) error {
	switch {
	case clientID == "":
		return &AssertionError{Field: "clientId", Message: "Your client ID is missing. " + copyCredentialsMessage}
	case hasClientIDTpl.MatchString(clientID):
		return &AssertionError{
			Field:   "clientId",
			Message: "Replace {clientId} with the client ID of your Application. " + copyCredentialsMessage,
		}
	}
	return nil
}

func issuerError(msg string) error {
	return &AssertionError{Field: "issuer", Message: msg}
}
