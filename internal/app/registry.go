package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/studysync/internal/core"
	"github.com/dkeye/studysync/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Identity domain.Identity
	Client   string
	Signal   core.SignalConnection
}

// Registry owns the connection -> identity mapping. The room index
// (identity -> connections) is derived from it and updated under the
// same lock, so the two views never diverge.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
	rooms map[domain.Identity]map[core.ConnID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.ConnID]*connEntry),
		rooms: make(map[domain.Identity]map[core.ConnID]struct{}),
	}
}

// Register inserts a connection with no identity.
func (r *Registry) Register(id core.ConnID, client string, sig core.SignalConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; ok {
		return fmt.Errorf("register %s: %w", id, domain.ErrDuplicateConnection)
	}
	r.conns[id] = &connEntry{Client: client, Signal: sig}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("client", client).Msg("registered connection")
	return nil
}

// Assign overwrites the identity of id and returns the previous one
// ("" when unset). The old room is not told about the departure.
func (r *Registry) Assign(id core.ConnID, identity domain.Identity) (domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return "", fmt.Errorf("assign %s: %w", id, domain.ErrUnknownConnection)
	}
	prev := e.Identity
	r.removeFromRoomLocked(id, prev)

	e.Identity = identity
	room, ok := r.rooms[identity]
	if !ok {
		room = make(map[core.ConnID]struct{})
		r.rooms[identity] = room
	}
	room[id] = struct{}{}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("identity", string(identity)).Str("previous", string(prev)).Msg("assigned identity")
	return prev, nil
}

// ClearIdentity drops the room membership of id but keeps it registered.
func (r *Registry) ClearIdentity(id core.ConnID) domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok || e.Identity == "" {
		return ""
	}
	prev := e.Identity
	r.removeFromRoomLocked(id, prev)
	e.Identity = ""
	return prev
}

// Unregister removes id and returns the identity it had at that moment.
// Absent ids are a no-op so duplicate disconnect signals are harmless.
func (r *Registry) Unregister(id core.ConnID) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return "", false
	}
	r.removeFromRoomLocked(id, e.Identity)
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unregistered connection")
	return e.Identity, true
}

func (r *Registry) removeFromRoomLocked(id core.ConnID, identity domain.Identity) {
	if identity == "" {
		return
	}
	room, ok := r.rooms[identity]
	if !ok {
		return
	}
	delete(room, id)
	if len(room) == 0 {
		delete(r.rooms, identity)
	}
}

// IdentityOf is for logs and diagnostics; fanout reads the room index.
func (r *Registry) IdentityOf(id core.ConnID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.Identity == "" {
		return "", false
	}
	return e.Identity, true
}

func (r *Registry) Has(id core.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

func (r *Registry) Members(identity domain.Identity) []core.Member {
	return r.MembersExcluding(identity, "")
}

// MembersExcluding snapshots the room of identity without except.
func (r *Registry) MembersExcluding(identity domain.Identity, except core.ConnID) []core.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[identity]
	out := make([]core.Member, 0, len(room))
	for id := range room {
		if id == except {
			continue
		}
		e := r.conns[id]
		out = append(out, core.Member{ID: id, Identity: identity, Client: e.Client, Signal: e.Signal})
	}
	return out
}

func (r *Registry) MemberCount(identity domain.Identity) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[identity])
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
