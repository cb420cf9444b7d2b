package app

import (
	"fmt"

	"github.com/dkeye/studysync/internal/core"
	"github.com/dkeye/studysync/internal/domain"
	"github.com/samber/lo"
)

// RoomRouter maps identities to rooms. It stores nothing itself: rooms
// are the registry's secondary index.
type RoomRouter struct {
	reg *Registry
}

func NewRoomRouter(reg *Registry) *RoomRouter {
	return &RoomRouter{reg: reg}
}

// Join moves id into the room of identity, superseding any prior room.
// The previous identity is returned for logging.
func (rr *RoomRouter) Join(id core.ConnID, identity domain.Identity) (domain.Identity, error) {
	if !identity.Valid() {
		return "", fmt.Errorf("join %s: %w: %q", id, domain.ErrInvalidIdentity, string(identity))
	}
	return rr.reg.Assign(id, identity)
}

// Leave is a no-op when id is in no room.
func (rr *RoomRouter) Leave(id core.ConnID) domain.Identity {
	return rr.reg.ClearIdentity(id)
}

func (rr *RoomRouter) MembersOf(identity domain.Identity) []core.Member {
	return rr.reg.Members(identity)
}

func (rr *RoomRouter) MembersExcluding(identity domain.Identity, id core.ConnID) []core.Member {
	return rr.reg.MembersExcluding(identity, id)
}

// List reports every room of the closed identity set, empty ones included.
func (rr *RoomRouter) List() []core.RoomInfo {
	return lo.Map(domain.Identities, func(identity domain.Identity, _ int) core.RoomInfo {
		return core.RoomInfo{Identity: identity, MemberCount: rr.reg.MemberCount(identity)}
	})
}

func (rr *RoomRouter) MembersSnapshot(identity domain.Identity) []core.MemberDTO {
	return lo.Map(rr.reg.Members(identity), func(m core.Member, _ int) core.MemberDTO {
		return core.MemberDTO{ID: m.ID, Client: m.Client}
	})
}
