package config

import "time"

// Config holds runtime settings for the srpauth CLI.
type Config struct {
	RegistrationAddr string
	HandshakeURL     string
	Timeout          time.Duration
}

// LoadDefaults points the client at a local server.
func (c *Config) LoadDefaults() {
	c.RegistrationAddr = "127.0.0.1:50051"
	c.HandshakeURL = "ws://127.0.0.1:8080/handshake"
	c.Timeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
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
