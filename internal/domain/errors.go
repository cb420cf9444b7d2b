package domain

import "errors"

var (
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrDuplicateConnection = errors.New("connection already registered")
	ErrInvalidIdentity     = errors.New("invalid identity")
	ErrDeliveryFailure     = errors.New("delivery failure")
	ErrUnknownKind         = errors.New("unknown mutation kind")
)
