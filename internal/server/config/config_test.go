package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Empty(t, c.DatabaseDSN, "empty DSN selects the in-memory store")
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.True(t, c.UsesDefaultSecret())
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 30*time.Second, c.HandshakeTimeout)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_NoArgsGivesDefaults(t *testing.T) {
	c, err := LoadConfig(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, &want, c)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, t.TempDir(), "", map[string]any{
		"endpoint_addr_grpc": ":7000",
		"secret_key":         "from-json",
		"handshake_timeout":  "5s",
	})

	c, err := LoadConfig([]string{"-c", path, "-s", "from-flag"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", c.EndpointAddrGRPC)
	assert.Equal(t, "from-flag", c.SecretKey)
	assert.False(t, c.UsesDefaultSecret())
	assert.Equal(t, 5*time.Second, c.HandshakeTimeout)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig([]string{"-config", "/does/not/exist.json"})
	require.Error(t, err)
}
