package handshake

import (
	"encoding/json"
	"fmt"
)

// Wire phase tags.
const (
	PhaseStart         = 1
	PhaseLogin         = 2
	PhaseChallenge     = 3
	PhaseScramble      = 3
	PhaseScrambleAck   = 4
	PhaseSessionKey    = 5
	PhaseSessionKeyAck = 6
	PhaseProof         = 7
	PhaseGrant         = 8
)

// Message is one JSON frame in either direction. Error is set only on the
// error notification sent before an error close.
type Message struct {
	Phase int             `json:"phase,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// LoginRequest is the phase 2 payload. Integers are lowercase hex.
type LoginRequest struct {
	Identity     string `json:"identity"`
	ClientPublic string `json:"clientPublic"`
}

// Challenge is the phase 3 payload sent by the server.
type Challenge struct {
	Salt         string `json:"salt"`
	ServerPublic string `json:"serverPublic"`
}

// ProofRequest is the phase 7 payload.
type ProofRequest struct {
	ClientProof string `json:"clientProof"`
}

// Grant is sent after a valid client proof, right before the success close.
type Grant struct {
	ServerProof string `json:"serverProof"`
	AccessToken string `json:"accessToken,omitempty"`
}

// NewMessage builds a message with data marshalled as JSON. A nil data
// produces a bare {phase:n} frame.
func NewMessage(phase int, data any) (Message, error) {
	msg := Message{Phase: phase}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("marshal phase %d data: %w", phase, err)
	}
	msg.Data = raw
	return msg, nil
}

// Decode unmarshals the message data into v.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%w: phase %d has no data", ErrMalformedMessage, m.Phase)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}
