package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/srpauth/internal/flagx"
	"github.com/dmitrijs2005/srpauth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	RegistrationAddr string         `json:"registration_addr"`
	HandshakeURL     string         `json:"handshake_url"`
	Timeout          timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with values from the file named by -c/-config.
// Absent keys keep their current values.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.RegistrationAddr != "" {
		cfg.RegistrationAddr = jc.RegistrationAddr
	}
	if jc.HandshakeURL != "" {
		cfg.HandshakeURL = jc.HandshakeURL
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	return nil
}
