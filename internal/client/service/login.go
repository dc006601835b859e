package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/dmitrijs2005/srpauth/internal/common"
	"github.com/dmitrijs2005/srpauth/internal/handshake"
	"github.com/dmitrijs2005/srpauth/internal/srp"
	"github.com/gorilla/websocket"
)

var (
	// ErrAuthenticationFailed means the server rejected the password proof.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrServerNotVerified means the server could not prove it knows the
	// verifier; the session must not be trusted.
	ErrServerNotVerified = errors.New("server proof mismatch")
	// ErrRejected covers every other server-side termination.
	ErrRejected = errors.New("handshake rejected")
)

// LoginResult is what a verified handshake yields.
type LoginResult struct {
	AccessToken    string
	SessionKeyHash *big.Int
}

// Login runs the handshake for identity. On success the access token is kept
// for later calls. password is wiped before returning.
func (s *AuthClientService) Login(ctx context.Context, identity string, password []byte) (*LoginResult, error) {
	c, err := srp.NewClient(s.params, identity, string(password))
	common.WipeByteArray(password)
	if err != nil {
		return nil, err
	}

	ws, resp, err := s.dialer.DialContext(ctx, s.handshakeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.handshakeURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer ws.Close()

	stop := context.AfterFunc(ctx, func() { _ = ws.NetConn().Close() })
	defer stop()

	p := &peer{ws: ws, ctx: ctx}

	if _, err := p.expect(handshake.PhaseStart); err != nil {
		return nil, err
	}

	if err := p.send(handshake.PhaseLogin, handshake.LoginRequest{
		Identity:     identity,
		ClientPublic: srp.FormatInt(c.Public()),
	}); err != nil {
		return nil, err
	}

	msg, err := p.expect(handshake.PhaseChallenge)
	if err != nil {
		return nil, err
	}
	var ch handshake.Challenge
	if err := msg.Decode(&ch); err != nil {
		return nil, err
	}
	B, err := srp.ParseInt(ch.ServerPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", handshake.ErrMalformedMessage, err)
	}
	if _, err := c.ComputeKey(ch.Salt, B); err != nil {
		return nil, err
	}

	if err := p.send(handshake.PhaseScramble, nil); err != nil {
		return nil, err
	}
	if _, err := p.expect(handshake.PhaseScrambleAck); err != nil {
		return nil, err
	}
	if err := p.send(handshake.PhaseSessionKey, nil); err != nil {
		return nil, err
	}
	if _, err := p.expect(handshake.PhaseSessionKeyAck); err != nil {
		return nil, err
	}

	M, err := c.Proof()
	if err != nil {
		return nil, err
	}
	if err := p.send(handshake.PhaseProof, handshake.ProofRequest{ClientProof: srp.FormatInt(M)}); err != nil {
		return nil, err
	}

	msg, err = p.expect(handshake.PhaseGrant)
	if err != nil {
		return nil, err
	}
	var grant handshake.Grant
	if err := msg.Decode(&grant); err != nil {
		return nil, err
	}
	serverProof, err := srp.ParseInt(grant.ServerProof)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServerNotVerified, err)
	}
	ok, err := c.VerifyServerProof(serverProof)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrServerNotVerified
	}

	key, err := c.SessionKeyHash()
	if err != nil {
		return nil, err
	}

	s.accessToken = grant.AccessToken
	return &LoginResult{AccessToken: grant.AccessToken, SessionKeyHash: key}, nil
}

type peer struct {
	ws  *websocket.Conn
	ctx context.Context
}

func (p *peer) send(phase int, data any) error {
	msg, err := handshake.NewMessage(phase, data)
	if err != nil {
		return err
	}
	if dl, ok := p.ctx.Deadline(); ok {
		_ = p.ws.SetWriteDeadline(dl)
	}
	return p.ws.WriteJSON(msg)
}

// expect reads the next message and checks its phase. Error notifications
// and close frames are turned into errors.
func (p *peer) expect(phase int) (handshake.Message, error) {
	if dl, ok := p.ctx.Deadline(); ok {
		_ = p.ws.SetReadDeadline(dl)
	} else {
		_ = p.ws.SetReadDeadline(time.Time{})
	}

	var msg handshake.Message
	if err := p.ws.ReadJSON(&msg); err != nil {
		return handshake.Message{}, p.closeErr(err)
	}

	if msg.Error != "" {
		// the close frame follows; prefer its reason
		var next handshake.Message
		if err := p.ws.ReadJSON(&next); err != nil {
			return handshake.Message{}, p.closeErr(err)
		}
		return handshake.Message{}, fmt.Errorf("%w: %s", ErrRejected, msg.Error)
	}

	if msg.Phase != phase {
		return handshake.Message{}, fmt.Errorf("%w: got phase %d, want %d", handshake.ErrUnexpectedPhase, msg.Phase, phase)
	}
	return msg, nil
}

func (p *peer) closeErr(err error) error {
	if ctxErr := p.ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}

	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return err
	}
	switch ce.Code {
	case handshake.CloseUnauthorized:
		return ErrAuthenticationFailed
	case handshake.CloseError:
		return fmt.Errorf("%w: %s", ErrRejected, ce.Text)
	case websocket.CloseAbnormalClosure:
		return fmt.Errorf("%w: connection dropped", ErrRejected)
	default:
		return fmt.Errorf("%w: close %d %s", ErrRejected, ce.Code, ce.Text)
	}
}
