package core

import "errors"

//go:generate mockgen -source=signal_iface.go -destination=mocks/mock_signal_iface.go -package=mocks

// Frame is a raw text payload written to one connection.
type Frame []byte

// ConnID identifies one live transport session. Assigned by the server.
type ConnID string

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking.
	TrySend(f Frame) error
	Close()
}
