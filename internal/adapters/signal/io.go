package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			ctl.closeGoingAway(c)
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := ctl.ping(c); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ping failed")
				c.Close()
				return
			}
		}
	}
}

// readPump owns the disconnect: whatever ends the loop, the supervisor
// is told exactly once, after every frame this connection delivered.
func (ctl *SignalWSController) readPump(ctx, connCtx context.Context, cancel context.CancelFunc, c *WsSignalConn) {
	var reason error
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Limiter.Forget(c.id)
		if err := ctl.Super.Disconnect(ctx, c.id, reason); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("disconnect not delivered")
		}
	}()

	ctl.armKeepalive(c)

	for {
		select {
		case <-connCtx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				reason = err
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
					log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
				}
				return
			}
			if !ctl.Limiter.Allow(c.id) {
				log.Warn().Str("module", "signal").Str("conn", string(c.id)).Msg("rate limited, frame dropped")
				continue
			}
			if err := ctl.Super.Receive(ctx, c.id, data); err != nil {
				reason = err
				return
			}
		}
	}
}
