package core

import (
	"github.com/dkeye/studysync/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SendTo  int
	Dropped []Member
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID     ConnID `json:"id"`
	Client string `json:"client,omitempty"`
}

type RoomInfo struct {
	Identity    domain.Identity `json:"identity"`
	MemberCount int             `json:"member_count"`
}
