// Package srp implements the arithmetic side of SRP-6a: modular
// exponentiation, the colon-joined digest, random scalars, the shared group
// parameters and a reference client.
//
// Conventions follow the SRP papers:
//
//	N   large safe prime, all arithmetic is mod N
//	g   generator mod N
//	k   multiplier, k = H(N, g)
//	s   salt, I identity, p password
//	x   private key, x = H(s, p); v = g^x verifier
//	a,b secret ephemerals; A = g^a, B = k*v + g^b
//	u   scrambler, u = H(A, B)
//	S   premaster secret, K = H(S) session key hash
//	M   client proof, M = H(H(N) xor H(g), H(I), s, A, B, K)
package srp

import (
	"fmt"
	"math/big"
	"sync"
)

// rfc5054N2048 is the 2048-bit safe prime from RFC 5054, Appendix A.
const rfc5054N2048 = "" +
	"ac6bdb41324a9a9bf166de5e1389582faf72b6651987ee07fc3192943db56050" +
	"a37329cbb4a099ed8193e0757767a13dd52312ab4b03310dcd7f48a9da04fd50" +
	"e8083969edb767b0cf6095179a163ab3661a05fbd5faaae82918a9962f0b93b8" +
	"55f97993ec975eeaa80d740adbf4ff747359d041d5c33ea71d281e446b14773b" +
	"ca97b43a23fb801676bd207a436c6481f1d2b9078717461a5b9d32e688f87748" +
	"544523b524b0d57d5ea77a2775d2ecfa032cfbdbf52fb3786160279004e57ae6" +
	"af874e7303ce53299ccc041c7bc308d82a5698f3a8d0c38271ae35f8e9dbfbb6" +
	"94b5c803d89f7ae435de236d525f54759b65e372fcd68ef20fa7111f9e4aff73"

const rfc5054G2048 = 2

// Params is the immutable group every session works in.
type Params struct {
	N *big.Int
	G *big.Int
	K *big.Int
}

var (
	defaultParams     *Params
	defaultParamsOnce sync.Once
)

// DefaultParams returns the process-wide parameters, built on first use and
// shared read-only afterwards. Callers must not mutate the returned values.
func DefaultParams() *Params {
	defaultParamsOnce.Do(func() {
		n, ok := new(big.Int).SetString(rfc5054N2048, 16)
		if !ok {
			panic("srp: cannot parse built-in prime")
		}
		p, err := NewParams(n, big.NewInt(rfc5054G2048))
		if err != nil {
			panic(err)
		}
		defaultParams = p
	})
	return defaultParams
}

// NewParams builds a parameter set and derives k = H(N, g). N and g are taken
// from a published group and are not checked for primality here.
func NewParams(n, g *big.Int) (*Params, error) {
	if n == nil || n.Cmp(big.NewInt(3)) < 0 {
		return nil, fmt.Errorf("srp: modulus too small")
	}
	if g == nil || g.Sign() <= 0 || g.Cmp(n) >= 0 {
		return nil, fmt.Errorf("srp: generator out of range")
	}

	return &Params{
		N: new(big.Int).Set(n),
		G: new(big.Int).Set(g),
		K: Digest(n, g),
	}, nil
}

// IsZeroMod reports whether v is a multiple of N.
func (p *Params) IsZeroMod(v *big.Int) bool {
	return new(big.Int).Mod(v, p.N).Sign() == 0
}

// ClientProof computes M = H(H(N) xor H(g), H(I), s, A, B, K).
func (p *Params) ClientProof(identity, salt string, clientPublic, serverPublic, sessionKeyHash *big.Int) *big.Int {
	groupHash := new(big.Int).Xor(Digest(p.N), Digest(p.G))
	return Digest(groupHash, Digest(identity), salt, clientPublic, serverPublic, sessionKeyHash)
}

// ServerProof computes H(A, M, K), returned to the client once M checks out.
func (p *Params) ServerProof(clientPublic, clientProof, sessionKeyHash *big.Int) *big.Int {
	return Digest(clientPublic, clientProof, sessionKeyHash)
}
