package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/studysync/internal/core"
	"github.com/dkeye/studysync/internal/domain"
)

func newRouterWith(t *testing.T, ids ...core.ConnID) (*Registry, *RoomRouter) {
	t.Helper()
	reg := NewRegistry()
	for _, id := range ids {
		require.NoError(t, reg.Register(id, "client-"+string(id), &recordingConn{}))
	}
	return reg, NewRoomRouter(reg)
}

func TestRoomRouter_JoinValidatesIdentity(t *testing.T) {
	tests := []struct {
		name     string
		identity domain.Identity
		wantErr  bool
	}{
		{name: "A", identity: domain.IdentityA},
		{name: "B", identity: domain.IdentityB},
		{name: "lower case", identity: "a", wantErr: true},
		{name: "unknown", identity: "C", wantErr: true},
		{name: "empty", identity: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rr := newRouterWith(t, "c1")

			_, err := rr.Join("c1", tt.identity)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidIdentity)
				for _, identity := range domain.Identities {
					assert.Empty(t, rr.MembersOf(identity))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []core.ConnID{"c1"}, memberIDs(rr.MembersOf(tt.identity)))
		})
	}
}

func TestRoomRouter_InvalidJoinKeepsPreviousRoom(t *testing.T) {
	_, rr := newRouterWith(t, "c1")
	_, err := rr.Join("c1", domain.IdentityA)
	require.NoError(t, err)

	_, err = rr.Join("c1", "Z")
	require.ErrorIs(t, err, domain.ErrInvalidIdentity)

	assert.Equal(t, []core.ConnID{"c1"}, memberIDs(rr.MembersOf(domain.IdentityA)))
}

func TestRoomRouter_RejoinMovesRoom(t *testing.T) {
	_, rr := newRouterWith(t, "c1", "c2")
	_, err := rr.Join("c1", domain.IdentityA)
	require.NoError(t, err)
	_, err = rr.Join("c2", domain.IdentityA)
	require.NoError(t, err)

	prev, err := rr.Join("c1", domain.IdentityB)
	require.NoError(t, err)
	assert.Equal(t, domain.IdentityA, prev)

	assert.Equal(t, []core.ConnID{"c2"}, memberIDs(rr.MembersOf(domain.IdentityA)))
	assert.Equal(t, []core.ConnID{"c1"}, memberIDs(rr.MembersOf(domain.IdentityB)))
}

func TestRoomRouter_Leave(t *testing.T) {
	reg, rr := newRouterWith(t, "c1")
	_, err := rr.Join("c1", domain.IdentityA)
	require.NoError(t, err)

	assert.Equal(t, domain.IdentityA, rr.Leave("c1"))
	assert.Empty(t, rr.MembersOf(domain.IdentityA))
	assert.True(t, reg.Has("c1"), "leave keeps the registration")

	assert.Empty(t, rr.Leave("c1"))
	assert.Empty(t, rr.Leave("ghost"))
}

func TestRoomRouter_ListAndSnapshot(t *testing.T) {
	_, rr := newRouterWith(t, "c1", "c2", "c3")
	for id, identity := range map[core.ConnID]domain.Identity{"c1": domain.IdentityA, "c2": domain.IdentityA, "c3": domain.IdentityB} {
		_, err := rr.Join(id, identity)
		require.NoError(t, err)
	}

	assert.Equal(t, []core.RoomInfo{
		{Identity: domain.IdentityA, MemberCount: 2},
		{Identity: domain.IdentityB, MemberCount: 1},
	}, rr.List())

	assert.ElementsMatch(t, []core.MemberDTO{
		{ID: "c1", Client: "client-c1"},
		{ID: "c2", Client: "client-c2"},
	}, rr.MembersSnapshot(domain.IdentityA))
}
