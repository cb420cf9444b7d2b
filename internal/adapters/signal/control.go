package signal

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// armKeepalive bounds inbound frames and lets every pong extend the
// read deadline. A peer silent for pong_wait is dropped.
func (ctl *SignalWSController) armKeepalive(c *WsSignalConn) {
	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	if err := c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait)); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
	})
}

func (ctl *SignalWSController) ping(c *WsSignalConn) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (ctl *SignalWSController) closeGoingAway(c *WsSignalConn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(ctl.cfg.WriteWait))
}
