package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	secrets := map[string]string{
		SecretAnthropicKey: "sk-ant-test-value",
		SecretOpenAIKey:    "sk-test-value",
	}

	assert.False(t, SecretsFileExists(dir))
	require.NoError(t, EncryptSecretsFile(dir, "correct horse", secrets))
	assert.True(t, SecretsFileExists(dir))

	decrypted, err := DecryptSecretsFile(dir, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, secrets, decrypted)
}

func TestDecryptWrongPassword(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EncryptSecretsFile(dir, "right", map[string]string{"K": "v"}))

	_, err := DecryptSecretsFile(dir, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong password")
}

func TestSecretsFileIsOpaqueAndPrivate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EncryptSecretsFile(dir, "pw", map[string]string{"K": "plainvalue"}))

	path := filepath.Join(dir, ProjectConfigDir, secretsFileName)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "plainvalue")
}

func TestDecryptRejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigDir, secretsFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	_, err := DecryptSecretsFile(dir, "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupted")
}

func TestGetSecretPrecedence(t *testing.T) {
	defer SetDecryptedSecrets(nil)

	t.Setenv("ASSISTANT_TEST_SECRET", "from-env")
	SetDecryptedSecrets(map[string]string{"ASSISTANT_TEST_SECRET": "from-file"})

	value, err := GetSecret("ASSISTANT_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-file", value, "the secrets file wins over the environment")

	SetDecryptedSecrets(nil)
	value, err = GetSecret("ASSISTANT_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	_, err = GetSecret("ASSISTANT_TEST_SECRET_MISSING")
	assert.Error(t, err)
}
