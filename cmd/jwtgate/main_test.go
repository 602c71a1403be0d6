package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCheck(t *testing.T, config string) (string, string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jwtgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))

	var stdout, stderr bytes.Buffer
	cmd := newRoot()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"check", "--config", path})

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCheckCommand(t *testing.T) {
	t.Run("It accepts a valid configuration", func(t *testing.T) {
		stdout, _, err := runCheck(t, "upstream: http://127.0.0.1:9000\nauth:\n  issuer: https://example.okta.com/oauth2/default\n")
		require.NoError(t, err)
		assert.Contains(t, stdout, "configuration ok")
	})

	t.Run("It lists configuration errors", func(t *testing.T) {
		_, stderr, err := runCheck(t, "upstream: http://127.0.0.1:9000\nauth:\n  issuer: http://example.okta.com\n")
		require.Error(t, err)
		assert.Contains(t, stderr, "Your Okta URL must start with https.")
	})
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.Equal(t, "debug", logger.GetLevel().String())

	_, err = newLogger("chatty")
	assert.Error(t, err)
}
