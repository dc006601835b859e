// Package cli implements the srpauth command-line client.
//
// Usage:
//
//	client [-a addr] [-w url] [-c config.json] <command> [-u identity]
//
// Commands: register, login, ping. With no command an interactive prompt
// starts. Passwords are always read from the terminal without echo.
package cli
