package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCredentials(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestAPIKeyPrefersCLIFlagOverEverything(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentials(t, dir, `{"openai":{"api_key":"from-file"}}`, 0o600)
	t.Setenv("OPENAI_API_KEY", "from-env")

	r := NewResolver(path, map[string]string{"openai": "from-flag"})
	require.Equal(t, "from-flag", r.APIKey("openai"))
}

func TestAPIKeyFallsBackToEnvThenFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentials(t, dir, `{"anthropic":{"api_key":"from-file"}}`, 0o600)
	t.Setenv("ANTHROPIC_API_KEY", "")

	r := NewResolver(path, nil)
	require.Equal(t, "from-file", r.APIKey("anthropic"))

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	r2 := NewResolver(path, nil)
	require.Equal(t, "from-env", r2.APIKey("anthropic"))
}

func TestMissingCredentialsFileIsNotFatal(t *testing.T) {
	r := NewResolver(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.Empty(t, r.APIKey("openai"))
	require.Empty(t, r.Warnings)
}

func TestMalformedCredentialsFileIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentials(t, dir, `{not valid json`, 0o600)
	r := NewResolver(path, nil)
	require.Empty(t, r.APIKey("openai"))
}

func TestWorldReadablePermissionsWarn(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentials(t, dir, `{"openai":{"api_key":"x"}}`, 0o644)
	r := NewResolver(path, nil)
	require.NotEmpty(t, r.Warnings)
}

func TestStateDirDefaultsUnderHome(t *testing.T) {
	t.Setenv("IKIGAI_STATE_DIR", "")
	dir := StateDir()
	require.Contains(t, dir, "ikigai")
}

func TestStateDirHonorsEnv(t *testing.T) {
	t.Setenv("IKIGAI_STATE_DIR", "/tmp/custom-state")
	require.Equal(t, "/tmp/custom-state", StateDir())
}
