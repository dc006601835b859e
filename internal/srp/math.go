package srp

import "math/big"

// ModPow returns base^exp mod m using left-to-right square-and-multiply over
// the bits of exp. The base is reduced modulo m before the loop.
//
// exp must be non-negative and m positive; anything else is a caller bug and
// panics. The result is always in [0, m).
func ModPow(base, exp, m *big.Int) *big.Int {
	if m.Sign() <= 0 {
		panic("srp: ModPow with non-positive modulus")
	}
	if exp.Sign() < 0 {
		panic("srp: ModPow with negative exponent")
	}

	result := big.NewInt(1)
	result.Mod(result, m)

	b := new(big.Int).Mod(base, m)
	tmp := new(big.Int)

	for i := exp.BitLen() - 1; i >= 0; i-- {
		tmp.Mul(result, result)
		result.Mod(tmp, m)
		if exp.Bit(i) == 1 {
			tmp.Mul(result, b)
			result.Mod(tmp, m)
		}
	}

	return result
}
