package app

import (
	"fmt"

	"github.com/dkeye/studysync/internal/core"
	"github.com/dkeye/studysync/internal/domain"
	"github.com/dkeye/studysync/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Fanout relays mutation events to every room member except the sender.
// Delivery is fire-and-forget: no ack, no retry.
type Fanout struct {
	reg    *Registry
	policy Policy
}

func NewFanout(reg *Registry, policy Policy) *Fanout {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Fanout{reg: reg, policy: policy}
}

func (f *Fanout) Relay(sender core.ConnID, evt domain.MutationEvent) (core.PublishResult, error) {
	res := core.PublishResult{}
	if !f.reg.Has(sender) {
		return res, fmt.Errorf("relay from %s: %w", sender, domain.ErrUnknownConnection)
	}
	frame, err := protocol.EncodeMutation(evt)
	if err != nil {
		return res, fmt.Errorf("relay from %s: %w", sender, err)
	}

	logger := log.With().
		Str("module", "app.fanout").
		Str("conn", string(sender)).
		Str("identity", string(evt.Target)).
		Str("kind", evt.Kind.String()).
		Logger()

	for _, m := range f.reg.MembersExcluding(evt.Target, sender) {
		if err := m.Signal.TrySend(frame); err != nil {
			logger.Warn().
				Err(fmt.Errorf("%w: %w", domain.ErrDeliveryFailure, err)).
				Str("dst_conn", string(m.ID)).
				Msg("send failed, frame dropped")
			res.Dropped = append(res.Dropped, m)
			if f.policy.OnDeliveryFailure(m, err) == Disconnect {
				logger.Warn().Str("dst_conn", string(m.ID)).Msg("closing slow member")
				m.Signal.Close()
			}
			continue
		}
		res.SendTo++
	}

	ev := logger.Debug().Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped))
	if len(evt.Payload) > 0 {
		ev = ev.RawJSON("payload", evt.Payload)
	}
	ev.Msg("broadcast result")
	return res, nil
}
