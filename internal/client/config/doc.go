// Package config loads runtime configuration for the srpauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the registration gRPC endpoint
//	-w string   WebSocket URL of the handshake endpoint
//	-t int      per-command timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so values can be
// either strings like "10s" or integer nanoseconds:
//
//	{
//	  "registration_addr": "127.0.0.1:50051",
//	  "handshake_url": "ws://127.0.0.1:8080/handshake",
//	  "timeout": "10s"
//	}
package config
