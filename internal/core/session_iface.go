package core

import "github.com/dkeye/studysync/internal/domain"

// Member is a snapshot of one registered connection.
// This is what a room fans out to.
type Member struct {
	ID       ConnID
	Identity domain.Identity
	Client   string
	Signal   SignalConnection
}
