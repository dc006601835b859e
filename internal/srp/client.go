package srp

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// EphemeralSize is the byte length of secret ephemeral exponents.
const EphemeralSize = 32

var (
	ErrInvalidServerPublic = errors.New("srp: server public key is zero mod N")
	ErrZeroScramble        = errors.New("srp: scrambling parameter is zero")
	ErrKeyNotComputed      = errors.New("srp: session key not computed")
)

// ComputeVerifier returns v = g^H(salt, password) mod N. This runs on the
// client at registration time; the server only ever stores the result.
func ComputeVerifier(p *Params, salt, password string) *big.Int {
	return ModPow(p.G, Digest(salt, password), p.N)
}

// GenerateSalt returns size random bytes rendered as lowercase hex.
func GenerateSalt(size int) (string, error) {
	s, err := RandomScalar(size)
	if err != nil {
		return "", err
	}
	b := s.FillBytes(make([]byte, size))
	return hex.EncodeToString(b), nil
}

// Client is the user side of one handshake. It is not safe for concurrent use.
type Client struct {
	params   *Params
	identity string
	password string

	private *big.Int
	public  *big.Int

	salt           string
	serverPublic   *big.Int
	sessionKeyHash *big.Int
	proof          *big.Int
}

// NewClient draws a fresh ephemeral pair a, A = g^a mod N.
func NewClient(p *Params, identity, password string) (*Client, error) {
	for {
		r, err := RandomScalar(EphemeralSize)
		if err != nil {
			return nil, err
		}
		a := r.Mod(r, p.N)
		A := ModPow(p.G, a, p.N)
		if p.IsZeroMod(A) {
			continue
		}
		return &Client{
			params:   p,
			identity: identity,
			password: password,
			private:  a,
			public:   A,
		}, nil
	}
}

// Identity returns the identity this client authenticates as.
func (c *Client) Identity() string {
	return c.identity
}

// Public returns A.
func (c *Client) Public() *big.Int {
	return new(big.Int).Set(c.public)
}

// ComputeKey derives K from the salt and B sent by the server:
//
//	u = H(A, B)
//	x = H(s, p)
//	S = (B - k*g^x) ^ (a + u*x) mod N
//	K = H(S)
func (c *Client) ComputeKey(salt string, serverPublic *big.Int) (*big.Int, error) {
	p := c.params
	if p.IsZeroMod(serverPublic) {
		return nil, ErrInvalidServerPublic
	}

	u := Digest(c.public, serverPublic)
	if u.Sign() == 0 {
		return nil, ErrZeroScramble
	}

	x := Digest(salt, c.password)

	kgx := new(big.Int).Mul(p.K, ModPow(p.G, x, p.N))
	base := new(big.Int).Sub(serverPublic, kgx)
	base.Mod(base, p.N)

	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, c.private)

	s := ModPow(base, exp, p.N)

	c.salt = salt
	c.serverPublic = new(big.Int).Set(serverPublic)
	c.sessionKeyHash = Digest(s)
	c.proof = p.ClientProof(c.identity, salt, c.public, serverPublic, c.sessionKeyHash)

	return new(big.Int).Set(c.sessionKeyHash), nil
}

// Proof returns M for the key computed by ComputeKey.
func (c *Client) Proof() (*big.Int, error) {
	if c.proof == nil {
		return nil, ErrKeyNotComputed
	}
	return new(big.Int).Set(c.proof), nil
}

// SessionKeyHash returns K once ComputeKey has succeeded.
func (c *Client) SessionKeyHash() (*big.Int, error) {
	if c.sessionKeyHash == nil {
		return nil, ErrKeyNotComputed
	}
	return new(big.Int).Set(c.sessionKeyHash), nil
}

// VerifyServerProof checks H(A, M, K) sent back by the server.
func (c *Client) VerifyServerProof(serverProof *big.Int) (bool, error) {
	if c.proof == nil {
		return false, ErrKeyNotComputed
	}
	want := c.params.ServerProof(c.public, c.proof, c.sessionKeyHash)
	return subtle.ConstantTimeCompare(want.Bytes(), serverProof.Bytes()) == 1, nil
}

// ParseInt parses a hex integer as sent on the wire: digits only, no sign,
// no prefix. Uppercase digits are accepted as well as lowercase.
func ParseInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("srp: empty integer")
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return nil, fmt.Errorf("srp: malformed hex integer %q", truncate(s, 16))
		}
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("srp: malformed hex integer %q", truncate(s, 16))
	}
	return v, nil
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// FormatInt renders v the way it is sent on the wire.
func FormatInt(v *big.Int) string {
	return v.Text(16)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
