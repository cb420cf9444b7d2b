package app

import (
	"context"
	"errors"

	"github.com/dkeye/studysync/internal/core"
	"github.com/dkeye/studysync/internal/domain"
	"github.com/dkeye/studysync/internal/protocol"
	"github.com/rs/zerolog/log"
)

type InboundKind int

const (
	Connected InboundKind = iota + 1
	Received
	Disconnected
)

func (k InboundKind) String() string {
	switch k {
	case Connected:
		return "connected"
	case Received:
		return "received"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// Inbound is one transport event waiting for the supervisor.
type Inbound struct {
	Kind   InboundKind
	Conn   core.ConnID
	Client string
	Signal core.SignalConnection
	Data   []byte
	Err    error
}

// Supervisor is the single dispatch point of the relay. Transport
// adapters enqueue connect/receive/disconnect items; Run handles them
// one at a time, so a connection's events are seen in transport order
// and its disconnect after everything it sent before.
type Supervisor struct {
	Registry *Registry
	Rooms    *RoomRouter
	Fanout   *Fanout

	queue chan Inbound
}

func NewSupervisor(reg *Registry, rooms *RoomRouter, fanout *Fanout, queueSize int) *Supervisor {
	return &Supervisor{
		Registry: reg,
		Rooms:    rooms,
		Fanout:   fanout,
		queue:    make(chan Inbound, queueSize),
	}
}

func (s *Supervisor) Run(ctx context.Context) error {
	log.Info().Str("module", "app.supervisor").Msg("dispatch loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.supervisor").Msg("dispatch loop stopped")
			return nil
		case in := <-s.queue:
			s.Dispatch(in)
		}
	}
}

func (s *Supervisor) Connect(ctx context.Context, id core.ConnID, client string, sig core.SignalConnection) error {
	return s.enqueue(ctx, Inbound{Kind: Connected, Conn: id, Client: client, Signal: sig})
}

func (s *Supervisor) Receive(ctx context.Context, id core.ConnID, data []byte) error {
	return s.enqueue(ctx, Inbound{Kind: Received, Conn: id, Data: data})
}

func (s *Supervisor) Disconnect(ctx context.Context, id core.ConnID, reason error) error {
	return s.enqueue(ctx, Inbound{Kind: Disconnected, Conn: id, Err: reason})
}

func (s *Supervisor) enqueue(ctx context.Context, in Inbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.queue <- in:
		return nil
	}
}

// Dispatch handles one item synchronously. Errors never leave it.
func (s *Supervisor) Dispatch(in Inbound) {
	switch in.Kind {
	case Connected:
		s.onConnect(in)
	case Received:
		s.onFrame(in.Conn, in.Data)
	case Disconnected:
		s.onDisconnect(in.Conn, in.Err)
	default:
		log.Warn().Str("module", "app.supervisor").Str("conn", string(in.Conn)).Int("kind", int(in.Kind)).Msg("unknown inbound kind")
	}
}

func (s *Supervisor) onConnect(in Inbound) {
	if err := s.Registry.Register(in.Conn, in.Client, in.Signal); err != nil {
		log.Error().Err(err).Str("module", "app.supervisor").Str("conn", string(in.Conn)).Msg("connect rejected")
		return
	}
	log.Info().Str("module", "app.supervisor").Str("conn", string(in.Conn)).Str("client", in.Client).Msg("client connected")
}

func (s *Supervisor) onFrame(id core.ConnID, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.supervisor").Str("conn", string(id)).Msg("bad frame dropped")
		return
	}

	switch env.Event {
	case protocol.EventJoinUser:
		s.onJoin(id, env)
	case protocol.EventTaskUpdated, protocol.EventUserUpdated:
		s.onMutation(id, env)
	default:
		log.Warn().Str("module", "app.supervisor").Str("conn", string(id)).Str("event", env.Event).Msg("unknown event")
	}
}

func (s *Supervisor) onJoin(id core.ConnID, env protocol.Envelope) {
	raw, err := protocol.DecodeJoin(env)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.supervisor").Str("conn", string(id)).Msg("bad join payload")
		return
	}
	prev, err := s.Rooms.Join(id, domain.Identity(raw))
	if err != nil {
		e := log.Warn()
		if errors.Is(err, domain.ErrUnknownConnection) {
			e = log.Debug()
		}
		e.Err(err).Str("module", "app.supervisor").Str("conn", string(id)).Msg("join dropped")
		return
	}
	ev := log.Info().Str("module", "app.supervisor").Str("conn", string(id)).Str("identity", raw)
	if prev != "" && string(prev) != raw {
		ev = ev.Str("from_identity", string(prev))
	}
	ev.Msg("user joined room")
}

func (s *Supervisor) onMutation(id core.ConnID, env protocol.Envelope) {
	evt, err := protocol.DecodeMutation(env)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.supervisor").Str("conn", string(id)).Msg("bad mutation payload")
		return
	}
	if _, err := s.Fanout.Relay(id, evt); err != nil {
		log.Debug().Err(err).Str("module", "app.supervisor").Str("conn", string(id)).Str("event", env.Event).Msg("relay skipped")
	}
}

func (s *Supervisor) onDisconnect(id core.ConnID, reason error) {
	// Capture before unregister erases it.
	identity, _ := s.Registry.IdentityOf(id)
	s.Rooms.Leave(id)
	if _, ok := s.Registry.Unregister(id); !ok {
		return
	}
	ev := log.Info().Str("module", "app.supervisor").Str("conn", string(id)).Str("identity", string(identity))
	if reason != nil {
		ev = ev.AnErr("reason", reason)
	}
	ev.Msg("client disconnected")
}
