package wire

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConnectionFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "connection.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestReadConnectionInfoSuccess(t *testing.T) {
	path := writeConnectionFile(t, `{
		"transport": "tcp",
		"ip": "127.0.0.1",
		"shell_port": 1,
		"iopub_port": 2,
		"stdin_port": 3,
		"control_port": 4,
		"hb_port": 5,
		"key": "abc123",
		"signature_scheme": "hmac-sha256"
	}`)

	info, err := ReadConnectionInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:1", info.ShellAddr())
	assert.Equal(t, "tcp://127.0.0.1:2", info.IOPubAddr())
	assert.Equal(t, []byte("abc123"), info.SigningKey())
}

func TestReadConnectionInfoRejectsUnsupportedScheme(t *testing.T) {
	path := writeConnectionFile(t, `{"transport":"tcp","ip":"127.0.0.1","signature_scheme":"hmac-sha1"}`)
	_, err := ReadConnectionInfo(path)
	require.Error(t, err)
	var configErr *ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestReadConnectionInfoRejectsMissingFile(t *testing.T) {
	_, err := ReadConnectionInfo(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	var configErr *ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestReadConnectionInfoRejectsMalformedJSON(t *testing.T) {
	path := writeConnectionFile(t, `not json`)
	_, err := ReadConnectionInfo(path)
	require.Error(t, err)
}

func TestSigningKeyEmptyWhenNoKey(t *testing.T) {
	info := ConnectionInfo{}
	assert.Nil(t, info.SigningKey())
}
