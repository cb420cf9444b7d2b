// Package signal is the websocket transport of the sync relay: one
// read pump and one write pump per browser session, feeding the
// supervisor in internal/app.
package signal

import (
	"context"
	"net/http"
	"sync"

	"github.com/dkeye/studysync/internal/app"
	"github.com/dkeye/studysync/internal/config"
	"github.com/dkeye/studysync/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type SignalWSController struct {
	Super   *app.Supervisor
	Limiter *ConnRateLimiter

	cfg      *config.Config
	upgrader websocket.Upgrader
}

func NewSignalWSController(sup *app.Supervisor, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Super:   sup,
		Limiter: NewConnRateLimiter(cfg.Relay.RateLimit, cfg.Relay.RateInterval),
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.AllowsOrigin(r.Header.Get("Origin"))
			},
		},
	}
}

// WsSignalConn implements core.SignalConnection over one websocket.
type WsSignalConn struct {
	id   core.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(id core.ConnID, ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		id:   id,
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) ID() core.ConnID { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and hands the connection to the
// supervisor. ctx is the server lifetime, not the request's.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	client := c.GetString("client_token")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("client", client).Msg("ws upgrade")
		return
	}

	id := core.ConnID(uuid.NewString())
	conn := newWsSignalConn(id, ws, ctl.cfg.Relay.SendBuffer)
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("client", client).Msg("new WS connection")

	if err := ctl.Super.Connect(ctx, id, client, conn); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("supervisor unavailable")
		conn.Close()
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, conn)
	go ctl.readPump(ctx, connCtx, cancel, conn)
}
