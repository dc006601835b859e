package srp

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

// digestSeparator joins rendered parts before hashing.
const digestSeparator = ":"

// Digest hashes an ordered sequence of values and returns the SHA-256 output
// read as a big-endian unsigned integer.
//
// Each part is rendered before joining:
//   - *big.Int: lowercase hexadecimal without prefix ("0" for zero)
//   - string: used as-is
//
// Any other type is a programming error and panics. The result depends on the
// order of parts: Digest(a, b) != Digest(b, a) in general.
func Digest(parts ...any) *big.Int {
	rendered := make([]string, len(parts))
	for i, p := range parts {
		rendered[i] = renderPart(p)
	}

	sum := sha256.Sum256([]byte(strings.Join(rendered, digestSeparator)))
	return new(big.Int).SetBytes(sum[:])
}

func renderPart(p any) string {
	switch v := p.(type) {
	case *big.Int:
		if v == nil {
			panic("srp: nil integer passed to Digest")
		}
		return v.Text(16)
	case string:
		return v
	default:
		panic(fmt.Sprintf("srp: unsupported Digest part %T", p))
	}
}
