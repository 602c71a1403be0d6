package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_AssertIssuer(t *testing.T) {
	testCases := []struct {
		name          string
		issuer        string
		opts          IssuerOptions
		expectedError string
	}{
		{
			name:   "valid https issuer",
			issuer: "https://example.okta.com/oauth2/default",
		},
		{
			name:          "missing issuer",
			issuer:        "",
			expectedError: "Your Okta URL is missing.",
		},
		{
			name:          "plain http issuer",
			issuer:        "http://example.okta.com/oauth2/default",
			expectedError: "Your Okta URL must start with https. Current value: http://example.okta.com/oauth2/default.",
		},
		{
			name:   "plain http issuer with the https check disabled",
			issuer: "http://127.0.0.1:8080/oauth2/default",
			opts:   IssuerOptions{DisableHTTPSCheck: true},
		},
		{
			name:          "placeholder domain",
			issuer:        "https://{yourOktaDomain}/oauth2/default",
			expectedError: "Replace {yourOktaDomain} with your Okta domain.",
		},
		{
			name:          "admin domain",
			issuer:        "https://example-admin.okta.com/oauth2/default",
			expectedError: "Your Okta domain should not contain -admin.",
		},
		{
			name:          "duplicated suffix",
			issuer:        "https://example.okta.com.com/oauth2/default",
			expectedError: "It looks like there's a typo in your Okta domain.",
		},
		{
			name:          "duplicated protocol",
			issuer:        "https://https://example.okta.com",
			expectedError: "It looks like there's a typo in your Okta domain.",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := AssertIssuer(testCase.issuer, testCase.opts)
			if testCase.expectedError == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), testCase.expectedError)
			assert.True(t, errors.Is(err, ErrAssertionFailed))

			var assertionErr *AssertionError
			require.ErrorAs(t, err, &assertionErr)
			assert.Equal(t, "issuer", assertionErr.Field)
		})
	}
}

func Test_AssertClientID(t *testing.T) {
	assert.NoError(t, AssertClientID("0oa1b2c3d4"))

	err := AssertClientID("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your client ID is missing.")

	err = AssertClientID("{clientId}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Replace {clientId} with the client ID of your Application.")
}

func Test_Validator(t *testing.T) {
	t.Run("It accepts a valid issuer", func(t *testing.T) {
		errs := New().Issuer(nil, "https://example.okta.com/oauth2/default")
		assert.True(t, errs.Empty())
	})

	t.Run("It appends the issuer assertion message", func(t *testing.T) {
		errs := New().Issuer(ErrorList{"first"}, "http://example.okta.com")
		require.Len(t, errs, 2)
		assert.Equal(t, "first", errs[0])
		assert.Contains(t, errs[1], "Your Okta URL must start with https.")
	})

	t.Run("It swallows client ID failures", func(t *testing.T) {
		errs := New().ClientID(ErrorList{"kept"}, "{clientId}")
		assert.Equal(t, ErrorList{"kept"}, errs)

		errs = New().ClientID(nil, "")
		assert.True(t, errs.Empty())
	})

	t.Run("It honours the https check option", func(t *testing.T) {
		v := New(WithIssuerOptions(IssuerOptions{DisableHTTPSCheck: true}))
		assert.True(t, v.Issuer(nil, "http://localhost:9000").Empty())
	})

	t.Run("It uses custom assertions", func(t *testing.T) {
		v := New(
			WithIssuerAssertion(func(string) error { return errors.New("issuer says no") }),
			WithClientIDAssertion(func(string) error { panic("never reported") }),
		)

		errs := v.Issuer(nil, "anything")
		errs = v.ClientID(errs, "anything")
		assert.Equal(t, ErrorList{"issuer says no"}, errs)
	})

	t.Run("It records a panicking issuer assertion", func(t *testing.T) {
		v := New(WithIssuerAssertion(func(string) error { panic("boom") }))
		assert.Equal(t, ErrorList{"boom"}, v.Issuer(nil, ""))
	})

	t.Run("It keeps runs independent", func(t *testing.T) {
		base := make(ErrorList, 1, 8)
		base[0] = "shared"

		v := New()
		first := v.Issuer(base, "")
		second := v.Issuer(base, "http://example.okta.com")

		require.Len(t, first, 2)
		require.Len(t, second, 2)
		assert.Contains(t, first[1], "missing")
		assert.Contains(t, second[1], "must start with https")
		assert.Len(t, base, 1)
	})
}
