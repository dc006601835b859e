package handshake

import (
	"context"
	"math/big"
)

// Status is the terminal outcome attached to a close.
type Status int

const (
	StatusSuccess Status = iota + 1
	StatusUnauthorized
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// WebSocket close codes carrying each Status. 1000 is the standard normal
// closure; the other two are in the application range.
const (
	CloseSuccess      = 1000
	CloseError        = 4000
	CloseUnauthorized = 4001
)

// CloseCode returns the close code that carries s to the peer.
func (s Status) CloseCode() int {
	switch s {
	case StatusSuccess:
		return CloseSuccess
	case StatusUnauthorized:
		return CloseUnauthorized
	default:
		return CloseError
	}
}

// Transport is the send side of a connection.
type Transport interface {
	// Send writes one message to the peer.
	Send(ctx context.Context, msg Message) error

	// Close ends the connection with a status notification.
	Close(status Status, reason string) error

	// Abort drops the connection without sending anything.
	Abort() error
}

// Receiver yields inbound messages in arrival order. Implementations return
// ErrIdleTimeout when the peer stays silent too long and ErrMalformedMessage
// for frames that are not valid messages.
type Receiver interface {
	Receive(ctx context.Context) (Message, error)
}

// Credentials is what the session needs from a stored user.
type Credentials struct {
	Salt     string
	Verifier *big.Int
}

// UserStore resolves an identity to its credentials. Unknown identities
// are reported with common.ErrorNotFound.
type UserStore interface {
	Lookup(ctx context.Context, identity string) (*Credentials, error)
}

// TokenIssuer mints the access token carried in the grant message.
type TokenIssuer interface {
	Issue(identity string) (string, error)
}
