package handshake

import (
	"context"
	"errors"
	"fmt"
)

// Serve starts the session and feeds it messages from r until the handshake
// reaches a terminal state or the connection fails. Messages are handled one
// at a time; the next one is not read until the previous handler returned.
//
// The returned error is nil only for a verified session.
func (s *Session) Serve(ctx context.Context, r Receiver) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	for {
		msg, err := r.Receive(ctx)
		if err != nil {
			from := s.state
			switch {
			case errors.Is(err, ErrIdleTimeout):
				_ = s.Fail(reasonIdleTimeout)
			case errors.Is(err, ErrMalformedMessage):
				_ = s.Fail(reasonMalformed)
			default:
				s.state = StateFailed
			}
			return fmt.Errorf("receive in state %s: %w", from, err)
		}

		if err := s.Handle(ctx, msg); err != nil {
			return err
		}
		if s.state == StateVerified {
			return nil
		}
	}
}
