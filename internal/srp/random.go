package srp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// randReader is a test seam for crypto/rand.
var randReader io.Reader = rand.Reader

// RandomScalar reads byteLength bytes from the system CSPRNG and returns them
// as a big-endian unsigned integer. It fails only when the entropy source does.
func RandomScalar(byteLength int) (*big.Int, error) {
	if byteLength < 0 {
		return nil, fmt.Errorf("srp: negative scalar length %d", byteLength)
	}

	buf := make([]byte, byteLength)
	if _, err := io.ReadFull(randReader, buf); err != nil {
		return nil, fmt.Errorf("srp: read random bytes: %w", err)
	}

	return new(big.Int).SetBytes(buf), nil
}
