package ws

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/srpauth/internal/handshake"
)

type frame struct {
	msg handshake.Message
	err error
}

// frameReader keeps one read outstanding on the connection while the session
// handles the previous message, so a peer close is noticed even while a
// handler is blocked on the user store. Frames are still delivered one at a
// time and in order.
type frameReader struct {
	frames chan frame
	done   chan struct{}
}

var _ handshake.Receiver = (*frameReader)(nil)

// startReader reads from conn until a read fails. Failures that mean the
// connection is gone call cancel; idle timeouts and malformed frames are left
// for the session to close with a reason.
func startReader(ctx context.Context, conn *Conn, cancel context.CancelFunc) *frameReader {
	r := &frameReader{
		frames: make(chan frame),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(r.done)
		for {
			msg, err := conn.Receive(ctx)
			if err != nil && connectionLost(err) {
				cancel()
			}
			select {
			case r.frames <- frame{msg: msg, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	return r
}

func (r *frameReader) Receive(ctx context.Context) (handshake.Message, error) {
	select {
	case f := <-r.frames:
		return f.msg, f.err
	case <-ctx.Done():
		return handshake.Message{}, fmt.Errorf("%w: %v", handshake.ErrClosed, ctx.Err())
	}
}

// Wait blocks until the read goroutine has exited.
func (r *frameReader) Wait() {
	<-r.done
}

func connectionLost(err error) bool {
	return !errors.Is(err, handshake.ErrIdleTimeout) && !errors.Is(err, handshake.ErrMalformedMessage)
}
