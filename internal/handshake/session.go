package handshake

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/srpauth/internal/srp"
)

const (
	reasonAuthFailed      = "authentication failed"
	reasonUnexpectedPhase = "unexpected phase"
	reasonMalformed       = "malformed message"
	reasonInternal        = "internal error"
	reasonIdleTimeout     = "idle timeout"
)

var errNoVerifier = errors.New("no verifier stored for identity")

// proofSize is the byte length of a digest, and so of a valid client proof.
const proofSize = 32

// Session is the server state for one connection. It is driven from a single
// goroutine and holds no locks.
type Session struct {
	params    *srp.Params
	store     UserStore
	transport Transport
	issuer    TokenIssuer
	random    func(int) (*big.Int, error)

	state State

	// nil until the owning phase has run
	ident *identified
	scr   *scrambled
	key   *keyed
}

// Option configures a Session.
type Option func(*Session)

// WithTokenIssuer makes a successful session carry an access token in the
// grant message.
func WithTokenIssuer(i TokenIssuer) Option {
	return func(s *Session) { s.issuer = i }
}

// WithRandom replaces the ephemeral key source.
func WithRandom(fn func(int) (*big.Int, error)) Option {
	return func(s *Session) { s.random = fn }
}

// NewSession binds a session to shared parameters, a store and a transport.
func NewSession(params *srp.Params, store UserStore, t Transport, opts ...Option) *Session {
	s := &Session{
		params:    params,
		store:     store,
		transport: t,
		random:    srp.RandomScalar,
		state:     StateNew,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the last completed phase.
func (s *Session) State() State {
	return s.state
}

// Identity returns the identity claimed in phase 2, if any.
func (s *Session) Identity() (string, bool) {
	if s.ident == nil {
		return "", false
	}
	return s.ident.identity, true
}

// SessionKeyHash returns K once phase 5 has run.
func (s *Session) SessionKeyHash() (*big.Int, bool) {
	if s.key == nil {
		return nil, false
	}
	return new(big.Int).Set(s.key.sessionKeyHash), true
}

// Start announces the handshake to the peer.
func (s *Session) Start(ctx context.Context) error {
	if s.state != StateNew {
		return fmt.Errorf("%w: start in state %s", ErrUnexpectedPhase, s.state)
	}
	if err := s.send(ctx, PhaseStart, nil); err != nil {
		return err
	}
	s.state = StateStarted
	return nil
}

// Handle processes one inbound message. Sentinel errors from this package
// describe how the session ended; a nil error with a non-terminal State means
// the handshake is waiting for the next phase.
func (s *Session) Handle(ctx context.Context, msg Message) error {
	if s.state.Terminal() {
		return ErrClosed
	}

	switch msg.Phase {
	case PhaseLogin:
		return s.handleLogin(ctx, msg)
	case PhaseScramble:
		return s.handleScramble(ctx, msg)
	case PhaseSessionKey:
		return s.handleSessionKey(ctx, msg)
	case PhaseProof:
		return s.handleProof(ctx, msg)
	default:
		return s.reject(msg.Phase)
	}
}

func (s *Session) handleLogin(ctx context.Context, msg Message) error {
	if s.state != StateStarted {
		return s.reject(msg.Phase)
	}

	var req LoginRequest
	if err := msg.Decode(&req); err != nil {
		return s.closeMalformed(err)
	}
	if req.Identity == "" {
		return s.closeMalformed(fmt.Errorf("%w: empty identity", ErrMalformedMessage))
	}
	A, err := srp.ParseInt(req.ClientPublic)
	if err != nil {
		return s.closeMalformed(fmt.Errorf("%w: clientPublic: %v", ErrMalformedMessage, err))
	}

	if s.params.IsZeroMod(A) {
		s.state = StateFailed
		if err := s.transport.Abort(); err != nil {
			return fmt.Errorf("%w: %v", ErrProtocolAbort, err)
		}
		return ErrProtocolAbort
	}

	creds, lookupErr := s.store.Lookup(ctx, req.Identity)
	if ctx.Err() != nil {
		// connection is gone; drop the result untouched
		return ErrClosed
	}
	if lookupErr == nil && (creds == nil || creds.Verifier == nil) {
		lookupErr = errNoVerifier
	}
	if lookupErr != nil {
		s.state = StateFailed
		notice := Message{Error: reasonAuthFailed}
		if err := s.transport.Send(ctx, notice); err != nil {
			_ = s.transport.Abort()
			return fmt.Errorf("%w: %w (send notice: %v)", ErrLookupFailed, lookupErr, err)
		}
		_ = s.transport.Close(StatusError, reasonAuthFailed)
		return fmt.Errorf("%w: %w", ErrLookupFailed, lookupErr)
	}

	r, err := s.random(srp.EphemeralSize)
	if err != nil {
		s.state = StateFailed
		_ = s.transport.Close(StatusError, reasonInternal)
		return fmt.Errorf("ephemeral key: %w", err)
	}
	b := r.Mod(r, s.params.N)

	// B = (k*v + g^b) mod N
	B := new(big.Int).Mul(s.params.K, creds.Verifier)
	B.Add(B, srp.ModPow(s.params.G, b, s.params.N))
	B.Mod(B, s.params.N)

	s.ident = &identified{
		identity:      req.Identity,
		salt:          creds.Salt,
		verifier:      new(big.Int).Set(creds.Verifier),
		clientPublic:  A,
		serverPrivate: b,
		serverPublic:  B,
	}
	s.state = StateIdentityReceived

	return s.send(ctx, PhaseChallenge, Challenge{
		Salt:         creds.Salt,
		ServerPublic: srp.FormatInt(B),
	})
}

func (s *Session) handleScramble(ctx context.Context, msg Message) error {
	if s.state != StateIdentityReceived {
		return s.reject(msg.Phase)
	}

	s.scr = &scrambled{
		scramble: srp.Digest(s.ident.clientPublic, s.ident.serverPublic),
	}
	s.state = StateScrambleComputed

	return s.send(ctx, PhaseScrambleAck, nil)
}

func (s *Session) handleSessionKey(ctx context.Context, msg Message) error {
	if s.state != StateScrambleComputed {
		return s.reject(msg.Phase)
	}

	// S = (A * v^u)^b mod N
	N := s.params.N
	base := new(big.Int).Mul(s.ident.clientPublic, srp.ModPow(s.ident.verifier, s.scr.scramble, N))
	premaster := srp.ModPow(base, s.ident.serverPrivate, N)

	s.key = &keyed{sessionKeyHash: srp.Digest(premaster)}
	s.state = StateKeyComputed

	return s.send(ctx, PhaseSessionKeyAck, nil)
}

func (s *Session) handleProof(ctx context.Context, msg Message) error {
	if s.state != StateKeyComputed {
		return s.reject(msg.Phase)
	}

	var req ProofRequest
	if err := msg.Decode(&req); err != nil {
		return s.closeMalformed(err)
	}
	clientProof, err := srp.ParseInt(req.ClientProof)
	if err != nil {
		return s.closeMalformed(fmt.Errorf("%w: clientProof: %v", ErrMalformedMessage, err))
	}

	id := s.ident
	expected := s.params.ClientProof(id.identity, id.salt, id.clientPublic, id.serverPublic, s.key.sessionKeyHash)

	if !proofsEqual(expected, clientProof) {
		s.state = StateFailed
		if err := s.transport.Close(StatusUnauthorized, StatusUnauthorized.String()); err != nil {
			return fmt.Errorf("%w: close: %v", ErrProofMismatch, err)
		}
		return ErrProofMismatch
	}

	grant := Grant{
		ServerProof: srp.FormatInt(s.params.ServerProof(id.clientPublic, expected, s.key.sessionKeyHash)),
	}
	if s.issuer != nil {
		token, err := s.issuer.Issue(id.identity)
		if err != nil {
			s.state = StateFailed
			_ = s.transport.Close(StatusError, reasonInternal)
			return fmt.Errorf("issue token: %w", err)
		}
		grant.AccessToken = token
	}

	s.state = StateVerified
	if err := s.send(ctx, PhaseGrant, grant); err != nil {
		return err
	}
	return s.transport.Close(StatusSuccess, StatusSuccess.String())
}

// Fail closes the session with an error status. It is used by the serve
// loop for conditions detected outside a phase handler.
func (s *Session) Fail(reason string) error {
	if s.state.Terminal() {
		return nil
	}
	s.state = StateFailed
	return s.transport.Close(StatusError, reason)
}

func (s *Session) reject(phase int) error {
	from := s.state
	s.state = StateFailed
	_ = s.transport.Close(StatusError, reasonUnexpectedPhase)
	return fmt.Errorf("%w: phase %d in state %s", ErrUnexpectedPhase, phase, from)
}

func (s *Session) closeMalformed(err error) error {
	s.state = StateFailed
	_ = s.transport.Close(StatusError, reasonMalformed)
	return err
}

func (s *Session) send(ctx context.Context, phase int, data any) error {
	msg, err := NewMessage(phase, data)
	if err != nil {
		return err
	}
	if err := s.transport.Send(ctx, msg); err != nil {
		s.state = StateFailed
		return fmt.Errorf("send phase %d: %w", phase, err)
	}
	return nil
}

func proofsEqual(expected, got *big.Int) bool {
	if got.BitLen() > proofSize*8 {
		return false
	}
	a := expected.FillBytes(make([]byte, proofSize))
	b := got.FillBytes(make([]byte, proofSize))
	return subtle.ConstantTimeCompare(a, b) == 1
}
