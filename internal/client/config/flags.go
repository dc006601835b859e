package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/srpauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Flags meant for sub-commands are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-w", "-t"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.RegistrationAddr, "a", cfg.RegistrationAddr, "registration gRPC address")
	fs.StringVar(&cfg.HandshakeURL, "w", cfg.HandshakeURL, "handshake WebSocket URL")
	timeout := fs.Int("t", int(cfg.Timeout.Seconds()), "timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
	return nil
}
