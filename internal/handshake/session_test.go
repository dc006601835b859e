package handshake

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/dmitrijs2005/srpauth/internal/common"
	"github.com/dmitrijs2005/srpauth/internal/srp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeTransport struct {
	sent    []Message
	closed  bool
	status  Status
	reason  string
	aborted bool
	sendErr error
}

func (f *fakeTransport) Send(ctx context.Context, msg Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Close(status Status, reason string) error {
	f.closed = true
	f.status = status
	f.reason = reason
	return nil
}

func (f *fakeTransport) Abort() error {
	f.aborted = true
	return nil
}

func (f *fakeTransport) last() Message {
	if len(f.sent) == 0 {
		return Message{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeStore struct {
	users map[string]*Credentials
	err   error
	// onLookup runs before the result is returned
	onLookup func()
}

func (f *fakeStore) Lookup(ctx context.Context, identity string) (*Credentials, error) {
	if f.onLookup != nil {
		f.onLookup()
	}
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.users[identity]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

type fakeIssuer struct {
	token string
	err   error
}

func (f fakeIssuer) Issue(identity string) (string, error) { return f.token, f.err }

// ---- helpers ----

const (
	testIdentity = "alice"
	testPassword = "correct horse battery staple"
	testSalt     = "5a17"
)

func newStore() *fakeStore {
	p := srp.DefaultParams()
	return &fakeStore{users: map[string]*Credentials{
		testIdentity: {Salt: testSalt, Verifier: srp.ComputeVerifier(p, testSalt, testPassword)},
	}}
}

func mustMessage(t *testing.T, phase int, data any) Message {
	t.Helper()
	m, err := NewMessage(phase, data)
	require.NoError(t, err)
	return m
}

func loginMessage(t *testing.T, identity string, A *big.Int) Message {
	t.Helper()
	return mustMessage(t, PhaseLogin, LoginRequest{Identity: identity, ClientPublic: srp.FormatInt(A)})
}

// runToKey drives a session through phases 1-6 and returns the client with
// its key computed.
func runToKey(t *testing.T, s *Session, tr *fakeTransport, password string) *srp.Client {
	t.Helper()
	ctx := context.Background()
	p := srp.DefaultParams()

	require.NoError(t, s.Start(ctx))
	require.Equal(t, PhaseStart, tr.last().Phase)

	c, err := srp.NewClient(p, testIdentity, password)
	require.NoError(t, err)

	require.NoError(t, s.Handle(ctx, loginMessage(t, testIdentity, c.Public())))
	require.Equal(t, PhaseChallenge, tr.last().Phase)

	var ch Challenge
	require.NoError(t, tr.last().Decode(&ch))
	assert.Equal(t, testSalt, ch.Salt)
	B, err := srp.ParseInt(ch.ServerPublic)
	require.NoError(t, err)

	require.NoError(t, s.Handle(ctx, Message{Phase: PhaseScramble}))
	require.Equal(t, PhaseScrambleAck, tr.last().Phase)
	assert.Empty(t, tr.last().Data)

	require.NoError(t, s.Handle(ctx, Message{Phase: PhaseSessionKey}))
	require.Equal(t, PhaseSessionKeyAck, tr.last().Phase)

	_, err = c.ComputeKey(ch.Salt, B)
	require.NoError(t, err)
	return c
}

// ---- tests ----

func TestSession_FullExchange(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr)
	c := runToKey(t, s, tr, testPassword)

	clientK, err := c.SessionKeyHash()
	require.NoError(t, err)
	serverK, ok := s.SessionKeyHash()
	require.True(t, ok)
	assert.Equal(t, 0, clientK.Cmp(serverK), "both sides must derive the same K")

	M, err := c.Proof()
	require.NoError(t, err)
	err = s.Handle(context.Background(), mustMessage(t, PhaseProof, ProofRequest{ClientProof: srp.FormatInt(M)}))
	require.NoError(t, err)

	assert.Equal(t, StateVerified, s.State())
	assert.True(t, tr.closed)
	assert.Equal(t, StatusSuccess, tr.status)

	require.Equal(t, PhaseGrant, tr.last().Phase)
	var g Grant
	require.NoError(t, tr.last().Decode(&g))
	assert.Empty(t, g.AccessToken)

	serverProof, err := srp.ParseInt(g.ServerProof)
	require.NoError(t, err)
	valid, err := c.VerifyServerProof(serverProof)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestSession_GrantCarriesToken(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr, WithTokenIssuer(fakeIssuer{token: "tok"}))
	c := runToKey(t, s, tr, testPassword)

	M, err := c.Proof()
	require.NoError(t, err)
	require.NoError(t, s.Handle(context.Background(), mustMessage(t, PhaseProof, ProofRequest{ClientProof: srp.FormatInt(M)})))

	var g Grant
	require.NoError(t, tr.last().Decode(&g))
	assert.Equal(t, "tok", g.AccessToken)
}

func TestSession_TokenIssuerFailure(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr, WithTokenIssuer(fakeIssuer{err: errors.New("no key")}))
	c := runToKey(t, s, tr, testPassword)

	M, err := c.Proof()
	require.NoError(t, err)
	err = s.Handle(context.Background(), mustMessage(t, PhaseProof, ProofRequest{ClientProof: srp.FormatInt(M)}))
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, StatusError, tr.status)
}

func TestSession_TamperedProof(t *testing.T) {
	for bit := 0; bit < 256; bit += 85 {
		tr := &fakeTransport{}
		s := NewSession(srp.DefaultParams(), newStore(), tr)
		c := runToKey(t, s, tr, testPassword)

		M, err := c.Proof()
		require.NoError(t, err)
		tampered := new(big.Int).SetBit(M, bit, M.Bit(bit)^1)

		err = s.Handle(context.Background(), mustMessage(t, PhaseProof, ProofRequest{ClientProof: srp.FormatInt(tampered)}))
		require.ErrorIs(t, err, ErrProofMismatch)
		assert.Equal(t, StateFailed, s.State())
		assert.Equal(t, StatusUnauthorized, tr.status)
		assert.NotEqual(t, PhaseGrant, tr.last().Phase)
	}
}

func TestSession_WrongPassword(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr)
	c := runToKey(t, s, tr, "not the password")

	M, err := c.Proof()
	require.NoError(t, err)
	err = s.Handle(context.Background(), mustMessage(t, PhaseProof, ProofRequest{ClientProof: srp.FormatInt(M)}))
	require.ErrorIs(t, err, ErrProofMismatch)
	assert.Equal(t, StatusUnauthorized, tr.status)
}

func TestSession_OversizedProof(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr)
	c := runToKey(t, s, tr, testPassword)

	M, err := c.Proof()
	require.NoError(t, err)
	// same low 256 bits, extra high bit
	big257 := new(big.Int).SetBit(M, 300, 1)

	err = s.Handle(context.Background(), mustMessage(t, PhaseProof, ProofRequest{ClientProof: srp.FormatInt(big257)}))
	require.ErrorIs(t, err, ErrProofMismatch)
}

func TestSession_ZeroClientPublicAborts(t *testing.T) {
	p := srp.DefaultParams()
	tests := []struct {
		name string
		A    *big.Int
	}{
		{"zero", big.NewInt(0)},
		{"N", p.N},
		{"multiple of N", new(big.Int).Mul(p.N, big.NewInt(5))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			store := newStore()
			looked := false
			store.onLookup = func() { looked = true }

			s := NewSession(p, store, tr)
			require.NoError(t, s.Start(context.Background()))

			err := s.Handle(context.Background(), loginMessage(t, testIdentity, tt.A))
			require.ErrorIs(t, err, ErrProtocolAbort)

			assert.True(t, tr.aborted)
			assert.False(t, tr.closed, "abort must not send a close status")
			assert.Len(t, tr.sent, 1, "only the start message may have been sent")
			assert.False(t, looked, "store must not be queried")
			assert.Equal(t, StateFailed, s.State())

			_, ok := s.Identity()
			assert.False(t, ok)
		})
	}
}

func TestSession_LookupFailures(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		storeErr error
		wantErr  error
	}{
		{name: "unknown identity", identity: "mallory", wantErr: common.ErrorNotFound},
		{name: "store failure", identity: testIdentity, storeErr: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			store := newStore()
			store.err = tt.storeErr

			s := NewSession(srp.DefaultParams(), store, tr)
			require.NoError(t, s.Start(context.Background()))

			c, err := srp.NewClient(srp.DefaultParams(), tt.identity, "pw")
			require.NoError(t, err)

			err = s.Handle(context.Background(), loginMessage(t, tt.identity, c.Public()))
			require.ErrorIs(t, err, ErrLookupFailed)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			// the peer sees the same generic text in both cases
			assert.Equal(t, Message{Error: "authentication failed"}, tr.last())
			assert.True(t, tr.closed)
			assert.Equal(t, StatusError, tr.status)
			assert.Equal(t, StateFailed, s.State())
		})
	}
}

func TestSession_MissingVerifier(t *testing.T) {
	tr := &fakeTransport{}
	store := &fakeStore{users: map[string]*Credentials{"bob": {Salt: "s"}}}
	s := NewSession(srp.DefaultParams(), store, tr)
	require.NoError(t, s.Start(context.Background()))

	err := s.Handle(context.Background(), loginMessage(t, "bob", big.NewInt(2)))
	require.ErrorIs(t, err, ErrLookupFailed)
	assert.Equal(t, StatusError, tr.status)
}

func TestSession_LookupAfterCloseIsDiscarded(t *testing.T) {
	tr := &fakeTransport{}
	store := newStore()
	ctx, cancel := context.WithCancel(context.Background())
	store.onLookup = cancel

	s := NewSession(srp.DefaultParams(), store, tr)
	require.NoError(t, s.Start(ctx))

	err := s.Handle(ctx, loginMessage(t, testIdentity, big.NewInt(2)))
	require.ErrorIs(t, err, ErrClosed)

	assert.Len(t, tr.sent, 1)
	assert.False(t, tr.closed)
	assert.Equal(t, StateStarted, s.State())
	_, ok := s.Identity()
	assert.False(t, ok)
}

func TestSession_ReplayedLoginRejected(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr)
	_ = runToKey(t, s, tr, testPassword)

	before, ok := s.SessionKeyHash()
	require.True(t, ok)
	sentBefore := len(tr.sent)

	err := s.Handle(context.Background(), loginMessage(t, testIdentity, big.NewInt(2)))
	require.ErrorIs(t, err, ErrUnexpectedPhase)

	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, StatusError, tr.status)
	assert.Equal(t, "unexpected phase", tr.reason)
	assert.Len(t, tr.sent, sentBefore, "no reply to a replayed phase")

	after, ok := s.SessionKeyHash()
	require.True(t, ok)
	assert.Equal(t, 0, before.Cmp(after), "earlier state is not overwritten")
}

func TestSession_OutOfOrderPhases(t *testing.T) {
	tests := []struct {
		name  string
		phase int
	}{
		{"scramble before login", PhaseScramble},
		{"key before login", PhaseSessionKey},
		{"proof before login", PhaseProof},
		{"server-only phase", PhaseScrambleAck},
		{"unknown phase", 42},
		{"no phase", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			s := NewSession(srp.DefaultParams(), newStore(), tr)
			require.NoError(t, s.Start(context.Background()))

			err := s.Handle(context.Background(), Message{Phase: tt.phase})
			require.ErrorIs(t, err, ErrUnexpectedPhase)
			assert.Equal(t, StatusError, tr.status)
			assert.Equal(t, StateFailed, s.State())
		})
	}
}

func TestSession_SkippedScramble(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr)
	require.NoError(t, s.Start(context.Background()))

	c, err := srp.NewClient(srp.DefaultParams(), testIdentity, testPassword)
	require.NoError(t, err)
	require.NoError(t, s.Handle(context.Background(), loginMessage(t, testIdentity, c.Public())))

	err = s.Handle(context.Background(), Message{Phase: PhaseSessionKey})
	require.ErrorIs(t, err, ErrUnexpectedPhase)

	_, ok := s.SessionKeyHash()
	assert.False(t, ok)
}

func TestSession_HandleBeforeStart(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr)

	err := s.Handle(context.Background(), loginMessage(t, testIdentity, big.NewInt(2)))
	require.ErrorIs(t, err, ErrUnexpectedPhase)
}

func TestSession_StartTwice(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr)
	require.NoError(t, s.Start(context.Background()))
	require.ErrorIs(t, s.Start(context.Background()), ErrUnexpectedPhase)
}

func TestSession_HandleAfterTerminal(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr)
	require.NoError(t, s.Start(context.Background()))
	_ = s.Handle(context.Background(), Message{Phase: 99})

	err := s.Handle(context.Background(), Message{Phase: PhaseScramble})
	require.ErrorIs(t, err, ErrClosed)
}

func TestSession_MalformedLogin(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"no data", Message{Phase: PhaseLogin}},
		{"not json", Message{Phase: PhaseLogin, Data: []byte(`{`)}},
		{"empty identity", Message{Phase: PhaseLogin, Data: []byte(`{"identity":"","clientPublic":"2"}`)}},
		{"bad hex", Message{Phase: PhaseLogin, Data: []byte(`{"identity":"alice","clientPublic":"xyz"}`)}},
		{"empty key", Message{Phase: PhaseLogin, Data: []byte(`{"identity":"alice"}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			s := NewSession(srp.DefaultParams(), newStore(), tr)
			require.NoError(t, s.Start(context.Background()))

			err := s.Handle(context.Background(), tt.msg)
			require.ErrorIs(t, err, ErrMalformedMessage)
			assert.Equal(t, StatusError, tr.status)
			assert.Equal(t, "malformed message", tr.reason)
		})
	}
}

func TestSession_MalformedProof(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr)
	_ = runToKey(t, s, tr, testPassword)

	err := s.Handle(context.Background(), Message{Phase: PhaseProof, Data: []byte(`{"clientProof":"not-hex"}`)})
	require.ErrorIs(t, err, ErrMalformedMessage)
	assert.Equal(t, StateFailed, s.State())
}

func TestSession_RandomFailure(t *testing.T) {
	tr := &fakeTransport{}
	s := NewSession(srp.DefaultParams(), newStore(), tr, WithRandom(func(int) (*big.Int, error) {
		return nil, io.ErrUnexpectedEOF
	}))
	require.NoError(t, s.Start(context.Background()))

	err := s.Handle(context.Background(), loginMessage(t, testIdentity, big.NewInt(2)))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, StatusError, tr.status)
	_, ok := s.Identity()
	assert.False(t, ok)
}

func TestSession_DeterministicServerKey(t *testing.T) {
	// with a fixed b the server public key is fully determined
	p := srp.DefaultParams()
	fixed := func(int) (*big.Int, error) { return big.NewInt(7), nil }
	v := srp.ComputeVerifier(p, testSalt, testPassword)

	want := new(big.Int).Mul(p.K, v)
	want.Add(want, srp.ModPow(p.G, big.NewInt(7), p.N))
	want.Mod(want, p.N)

	tr := &fakeTransport{}
	s := NewSession(p, newStore(), tr, WithRandom(fixed))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Handle(context.Background(), loginMessage(t, testIdentity, big.NewInt(2))))

	var ch Challenge
	require.NoError(t, tr.last().Decode(&ch))
	assert.Equal(t, srp.FormatInt(want), ch.ServerPublic)
}

func TestSession_SendFailure(t *testing.T) {
	tr := &fakeTransport{sendErr: errors.New("broken pipe")}
	s := NewSession(srp.DefaultParams(), newStore(), tr)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "key_computed", StateKeyComputed.String())
	assert.Equal(t, "unknown", State(100).String())
	assert.True(t, StateVerified.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateStarted.Terminal())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "unauthorized", StatusUnauthorized.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "unknown", Status(0).String())
}

func TestStatus_CloseCode(t *testing.T) {
	tests := []struct {
		status Status
		want   int
	}{
		{StatusSuccess, 1000},
		{StatusUnauthorized, 4001},
		{StatusError, 4000},
		{Status(0), 4000},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.CloseCode())
		})
	}
}
