package handshake

import "errors"

var (
	// ErrProtocolAbort means the peer sent A = 0 mod N and the connection
	// was dropped without a reply.
	ErrProtocolAbort = errors.New("protocol abort")

	// ErrLookupFailed covers both unknown identities and store failures.
	ErrLookupFailed = errors.New("identity lookup failed")

	ErrProofMismatch    = errors.New("client proof mismatch")
	ErrUnexpectedPhase  = errors.New("unexpected phase")
	ErrMalformedMessage = errors.New("malformed message")
	ErrIdleTimeout      = errors.New("idle timeout")

	// ErrClosed is returned for work attempted after the session ended,
	// including store results that arrive after the connection went away.
	ErrClosed = errors.New("session closed")
)
