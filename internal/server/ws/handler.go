package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/srpauth/internal/handshake"
	"github.com/dmitrijs2005/srpauth/internal/logging"
	"github.com/dmitrijs2005/srpauth/internal/srp"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades requests and runs one handshake session per connection.
type Handler struct {
	params   *srp.Params
	store    handshake.UserStore
	issuer   handshake.TokenIssuer
	logger   logging.Logger
	idle     time.Duration
	upgrader websocket.Upgrader

	// sessions outlive the HTTP server once hijacked
	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewHandler builds a Handler. Cancelling ctx aborts every running session.
// issuer may be nil, in which case grants carry no access token.
func NewHandler(ctx context.Context, params *srp.Params, store handshake.UserStore, issuer handshake.TokenIssuer, logger logging.Logger, idle time.Duration) *Handler {
	return &Handler{
		params:  params,
		store:   store,
		issuer:  issuer,
		logger:  logger.With("module", "handshake"),
		idle:    idle,
		baseCtx: ctx,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
	}
}

// ServeHandshake is the gin handler for GET /handshake.
func (h *Handler) ServeHandshake(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.Warn(c.Request.Context(), "upgrade failed", "remote", c.Request.RemoteAddr, "error", err)
		return
	}

	h.wg.Add(1)
	defer h.wg.Done()

	h.run(ws, c.Request.RemoteAddr)
}

func (h *Handler) run(ws *websocket.Conn, remote string) {
	log := h.logger.With("session", uuid.NewString(), "remote", remote)

	// cancelled on shutdown and when the peer goes away
	ctx, cancel := context.WithCancel(h.baseCtx)
	conn := NewConn(ws, h.idle)
	stop := context.AfterFunc(ctx, func() { _ = conn.Abort() })
	frames := startReader(ctx, conn, cancel)

	defer func() {
		stop()
		cancel()
		_ = ws.Close()
		frames.Wait()
	}()

	opts := []handshake.Option{}
	if h.issuer != nil {
		opts = append(opts, handshake.WithTokenIssuer(h.issuer))
	}
	s := handshake.NewSession(h.params, h.store, conn, opts...)

	log.Debug(ctx, "handshake started")
	err := s.Serve(ctx, frames)
	identity, _ := s.Identity()

	switch {
	case err == nil:
		log.Info(ctx, "handshake verified", "identity", identity)
	case errors.Is(err, handshake.ErrProofMismatch):
		log.Warn(ctx, "handshake rejected", "identity", identity)
	case errors.Is(err, handshake.ErrLookupFailed):
		log.Warn(ctx, "identity lookup failed", "identity", identity, "error", err)
	case errors.Is(err, handshake.ErrProtocolAbort):
		log.Warn(ctx, "handshake aborted", "reason", "degenerate client public value")
	case errors.Is(err, handshake.ErrClosed), errors.Is(err, handshake.ErrIdleTimeout):
		log.Info(ctx, "handshake ended", "state", s.State().String(), "error", err)
	default:
		log.Warn(ctx, "handshake failed", "state", s.State().String(), "error", err)
	}
}

// Wait blocks until all running sessions have returned.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// NewRouter wires the handshake and health endpoints.
func NewRouter(h *Handler, logger logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.String(http.StatusOK, "OK")
	})
	r.GET("/handshake", h.ServeHandshake)

	return r
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
