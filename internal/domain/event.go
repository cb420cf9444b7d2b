package domain

import "encoding/json"

type MutationKind int

const (
	TaskMutation MutationKind = iota + 1
	UserMutation
)

func (k MutationKind) String() string {
	switch k {
	case TaskMutation:
		return "task"
	case UserMutation:
		return "user"
	}
	return "unknown"
}

// MutationEvent is a task or user change relayed between the sessions
// of one identity. Payload is never interpreted.
type MutationEvent struct {
	Target  Identity
	Kind    MutationKind
	Payload json.RawMessage
}
