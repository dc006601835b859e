package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/srpauth/internal/client/config"
	"github.com/dmitrijs2005/srpauth/internal/client/service"
	"github.com/dmitrijs2005/srpauth/internal/common"
	"github.com/dmitrijs2005/srpauth/internal/flagx"
)

// AuthService is what the CLI needs from the client library.
type AuthService interface {
	Register(ctx context.Context, identity string, password []byte) error
	Login(ctx context.Context, identity string, password []byte) (*service.LoginResult, error)
	Ping(ctx context.Context) error
	WhoAmI(ctx context.Context) (string, error)
	Close() error
}

var ErrUnknownCommand = errors.New("unknown command")

type App struct {
	config      *config.Config
	authService AuthService
	reader      *bufio.Reader
	out         io.Writer
	userName    string
}

func NewApp(c *config.Config) (*App, error) {
	svc := service.NewAuthClientService(c.RegistrationAddr, c.HandshakeURL)
	if err := svc.InitGRPCClient(); err != nil {
		return nil, err
	}
	return &App{config: c, authService: svc, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

// Run executes the sub-command found in args, or starts the prompt.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.authService.Close()

	cmd, rest := flagx.SplitCommand(args)

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&a.userName, "u", "", "identity")
	if err := fs.Parse(flagx.FilterArgs(rest, []string{"-u"})); err != nil {
		return err
	}

	if cmd == "" {
		a.repl(ctx)
		return nil
	}
	return a.exec(ctx, cmd)
}

func (a *App) exec(ctx context.Context, cmd string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	switch cmd {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "ping":
		if err := a.authService.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "OK")
		return nil
	case "whoami":
		who, err := a.authService.WhoAmI(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, who)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.Timeout)
}

func (a *App) identity() (string, error) {
	if a.userName != "" {
		return a.userName, nil
	}
	name, err := ReadIdentity(a.reader, a.out)
	if err != nil {
		return "", err
	}
	a.userName = name
	return name, nil
}

// Register prompts for credentials and stores a new verifier on the server.
func (a *App) Register(ctx context.Context) error {
	identity, err := a.identity()
	if err != nil {
		return err
	}

	password, err := ReadNewPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, identity, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registered", identity)
	return nil
}

// Login runs the handshake and prints the granted access token.
func (a *App) Login(ctx context.Context) error {
	identity, err := a.identity()
	if err != nil {
		return err
	}

	password, err := ReadPassword(a.out, "Password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.authService.Login(ctx, identity, password)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Authenticated; server verified.")
	if res.AccessToken != "" {
		fmt.Fprintln(a.out, "Access token:", res.AccessToken)
	}
	return nil
}

func (a *App) repl(ctx context.Context) {
	fmt.Fprintln(a.out, "srpauth client (type 'help' for commands)")

	for {
		prompt := "srpauth> "
		if a.userName != "" {
			prompt = fmt.Sprintf("srpauth (%s)> ", a.userName)
		}
		fmt.Fprint(a.out, prompt)

		line, err := a.reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) > 0 {
			switch parts[0] {
			case "help":
				fmt.Fprintln(a.out, "Available commands: register, login, whoami, ping, exit")
			case "exit", "quit":
				fmt.Fprintln(a.out, "Bye!")
				return
			default:
				if cerr := a.exec(ctx, parts[0]); cerr != nil {
					fmt.Fprintln(a.out, "Error:", cerr)
				}
			}
		}
		if err != nil {
			return
		}
	}
}
