package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/studysync/internal/config"
	"github.com/dkeye/studysync/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	Disconnect
)

// Policy decides what happens to a member whose send failed.
type Policy interface {
	OnDeliveryFailure(member core.Member, err error) BackpressureAction
}

// DropPolicy loses the frame and keeps the member.
type DropPolicy struct{}

func (DropPolicy) OnDeliveryFailure(core.Member, error) BackpressureAction {
	return NoAction
}

// DisconnectPolicy closes members that cannot keep up. Its read pump
// then reports a regular disconnect.
type DisconnectPolicy struct{}

func (DisconnectPolicy) OnDeliveryFailure(_ core.Member, err error) BackpressureAction {
	if errors.Is(err, core.ErrBackpressure) {
		return Disconnect
	}
	return NoAction
}

func NewPolicy(name string) (Policy, error) {
	switch name {
	case config.PolicyDrop, "":
		return DropPolicy{}, nil
	case config.PolicyDisconnect:
		return DisconnectPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", name)
}
