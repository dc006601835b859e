package handshake

import "math/big"

// State is the last phase the session completed.
type State int

const (
	StateNew State = iota
	StateStarted
	StateIdentityReceived
	StateScrambleComputed
	StateKeyComputed
	StateVerified
	StateFailed
)

var stateNames = map[State]string{
	StateNew:              "new",
	StateStarted:          "started",
	StateIdentityReceived: "identity_received",
	StateScrambleComputed: "scramble_computed",
	StateKeyComputed:      "key_computed",
	StateVerified:         "verified",
	StateFailed:           "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether no further message can be processed.
func (s State) Terminal() bool {
	return s == StateVerified || s == StateFailed
}

// identified holds everything fixed by phase 2.
type identified struct {
	identity      string
	salt          string
	verifier      *big.Int
	clientPublic  *big.Int
	serverPrivate *big.Int
	serverPublic  *big.Int
}

// scrambled holds u, fixed by the phase 3 trigger.
type scrambled struct {
	scramble *big.Int
}

// keyed holds K, fixed by the phase 5 trigger.
type keyed struct {
	sessionKeyHash *big.Int
}
