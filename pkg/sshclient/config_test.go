package sshclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/degagne/gossh/internal/testutil"
)

const testSSHConfig = `Host bastion
    Hostname bastion.example.com
    Port 2222
    User deploy
    IdentityFile /etc/keys/bastion_ed25519
    ConnectTimeout 15
    ForwardAgent no
    IdentitiesOnly yes
    Compression yes

Host *.internal
    User ops
`

func writeTestSSHConfig(t *testing.T) string {
	t.Helper()
	path, cleanup, err := testutil.WriteStringToTempFile(testSSHConfig)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return path
}

func TestLoadSSHConfigMapsDirectives(t *testing.T) {
	path := writeTestSSHConfig(t)

	cfg, err := LoadSSHConfig("bastion", path)
	require.NoError(t, err)

	assert.Equal(t, "bastion.example.com", cfg.Hostname)
	assert.Equal(t, 2222, cfg.Port)
	assert.Equal(t, "deploy", cfg.Username)
	assert.Equal(t, []string{"/etc/keys/bastion_ed25519"}, cfg.KeyFilename)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.False(t, cfg.AllowAgent)
	assert.False(t, cfg.LookForKeys, "IdentitiesOnly yes disables the default key search")
	assert.True(t, cfg.Compress)
}

func TestLoadSSHConfigPatternMatch(t *testing.T) {
	path := writeTestSSHConfig(t)

	cfg, err := LoadSSHConfig("db1.internal", path)
	require.NoError(t, err)

	assert.Equal(t, "db1.internal", cfg.Hostname, "hostname stays as requested when not overridden")
	assert.Equal(t, "ops", cfg.Username)
	assert.Equal(t, DefaultSSHPort, cfg.Port)
}

func TestLoadSSHConfigDefaultsForUnknownHost(t *testing.T) {
	path := writeTestSSHConfig(t)

	cfg, err := LoadSSHConfig("unrelated.example.org", path)
	require.NoError(t, err)

	defaults := DefaultConnectConfig()
	assert.Equal(t, "unrelated.example.org", cfg.Hostname)
	assert.Equal(t, defaults.Port, cfg.Port)
	assert.Equal(t, defaults.AllowAgent, cfg.AllowAgent)
	assert.Equal(t, defaults.LookForKeys, cfg.LookForKeys)
	assert.Empty(t, cfg.KeyFilename)
}

func TestLoadSSHConfigMissingFile(t *testing.T) {
	_, err := LoadSSHConfig("bastion", "/nonexistent/ssh_config")

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadSSHConfigBadPort(t *testing.T) {
	path, cleanup, err := testutil.WriteStringToTempFile("Host broken\n    Port notanumber\n")
	require.NoError(t, err)
	t.Cleanup(cleanup)

	_, err = LoadSSHConfig("broken", path)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestDefaultConnectConfig(t *testing.T) {
	cfg := DefaultConnectConfig()

	assert.Equal(t, DefaultSSHPort, cfg.Port)
	assert.True(t, cfg.AllowAgent)
	assert.True(t, cfg.LookForKeys)
	assert.False(t, cfg.Compress)
	assert.False(t, cfg.InsecureIgnoreHostKey)
}

func TestBuildClientConfig(t *testing.T) {
	_, privateKeyPath, cleanup, err := testutil.CreateSSHKeyPairOnDisk()
	require.NoError(t, err)
	defer cleanup()

	cfg := ConnectConfig{
		Hostname:              "example.com",
		Username:              "testuser",
		KeyFilename:           []string{privateKeyPath},
		Timeout:               30 * time.Second,
		AllowAgent:            false,
		LookForKeys:           false,
		InsecureIgnoreHostKey: true,
	}

	clientConfig, err := buildClientConfig(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "testuser", clientConfig.User)
	assert.Len(t, clientConfig.Auth, 1)
	assert.Equal(t, 30*time.Second, clientConfig.Timeout)
}

func TestBuildClientConfigEmptyHostname(t *testing.T) {
	cfg := ConnectConfig{Username: "testuser", Password: "secret", InsecureIgnoreHostKey: true}

	_, err := buildClientConfig(&cfg)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestBuildClientConfigNoAuth(t *testing.T) {
	cfg := ConnectConfig{
		Hostname:              "example.com",
		Username:              "testuser",
		AllowAgent:            false,
		LookForKeys:           false,
		InsecureIgnoreHostKey: true,
	}

	_, err := buildClientConfig(&cfg)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestBuildClientConfigUnreadableKey(t *testing.T) {
	cfg := ConnectConfig{
		Hostname:              "example.com",
		Username:              "testuser",
		KeyFilename:           []string{"/nonexistent/key"},
		InsecureIgnoreHostKey: true,
	}

	_, err := buildClientConfig(&cfg)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
