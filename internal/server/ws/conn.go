// Package ws carries handshake messages over WebSocket text frames and
// exposes the /handshake endpoint on a gin router.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dmitrijs2005/srpauth/internal/handshake"
	"github.com/gorilla/websocket"
)

const (
	maxFrameSize = 64 << 10
	writeTimeout = 10 * time.Second
)

// Conn adapts a gorilla connection to handshake.Transport and
// handshake.Receiver. Each read waits at most idle for the next frame.
type Conn struct {
	ws   *websocket.Conn
	idle time.Duration
}

var (
	_ handshake.Transport = (*Conn)(nil)
	_ handshake.Receiver  = (*Conn)(nil)
)

func NewConn(ws *websocket.Conn, idle time.Duration) *Conn {
	ws.SetReadLimit(maxFrameSize)
	return &Conn{ws: ws, idle: idle}
}

func (c *Conn) Send(ctx context.Context, msg handshake.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.ws.SetWriteDeadline(deadline(ctx, writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(msg)
}

// Close sends a close frame carrying the status and shuts the connection.
func (c *Conn) Close(status handshake.Status, reason string) error {
	frame := websocket.FormatCloseMessage(status.CloseCode(), reason)
	werr := c.ws.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeTimeout))
	cerr := c.ws.Close()
	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		return werr
	}
	return cerr
}

// Abort drops the underlying connection without a close frame.
func (c *Conn) Abort() error {
	return c.ws.NetConn().Close()
}

func (c *Conn) Receive(ctx context.Context) (handshake.Message, error) {
	if c.idle > 0 {
		if err := c.ws.SetReadDeadline(time.Now().Add(c.idle)); err != nil {
			return handshake.Message{}, err
		}
	}

	mt, data, err := c.ws.ReadMessage()
	if err != nil {
		var ne net.Error
		switch {
		case errors.As(err, &ne) && ne.Timeout():
			return handshake.Message{}, handshake.ErrIdleTimeout
		case errors.Is(err, websocket.ErrReadLimit):
			return handshake.Message{}, fmt.Errorf("%w: frame too large", handshake.ErrMalformedMessage)
		case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
			return handshake.Message{}, fmt.Errorf("%w: peer closed", handshake.ErrClosed)
		}
		return handshake.Message{}, err
	}

	if mt != websocket.TextMessage {
		return handshake.Message{}, fmt.Errorf("%w: binary frame", handshake.ErrMalformedMessage)
	}

	var msg handshake.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return handshake.Message{}, fmt.Errorf("%w: %v", handshake.ErrMalformedMessage, err)
	}
	return msg, nil
}

func deadline(ctx context.Context, d time.Duration) time.Time {
	t := time.Now().Add(d)
	if dl, ok := ctx.Deadline(); ok && dl.Before(t) {
		return dl
	}
	return t
}
