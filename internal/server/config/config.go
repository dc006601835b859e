// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the srpauth server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the registration gRPC endpoint.
//   - EndpointAddrHTTP: bind address for the HTTP listener serving /handshake.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing access tokens (HS256).
//   - AccessTokenValidityDuration: lifetime of the token issued on success.
//   - HandshakeTimeout: how long a handshake may wait for the next frame.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddrGRPC            string
	EndpointAddrHTTP            string
	DatabaseDSN                 string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	HandshakeTimeout            time.Duration
	LogLevel                    string
}

// DefaultSecretKey is the development signing key. It must be overridden
// outside of development.
const DefaultSecretKey = "secretKey"

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = DefaultSecretKey
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.HandshakeTimeout = 30 * time.Second
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags. args
// excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsesDefaultSecret reports whether access tokens would be signed with the
// well-known development key.
func (c *Config) UsesDefaultSecret() bool {
	return c.SecretKey == DefaultSecretKey
}
