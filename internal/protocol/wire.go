// Package protocol is the JSON wire format spoken over the sync socket.
//
// Every frame is a text message {"event": <name>, "data": <payload>}.
// Event names are shared with the browser client and must not change.
// There is no socket.io framing: browser clients open a plain websocket
// and exchange this JSON envelope directly.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/studysync/internal/domain"
)

// Inbound events.
const (
	EventJoinUser    = "join-user"
	EventTaskUpdated = "task-updated"
	EventUserUpdated = "user-updated"
)

// Outbound events.
const (
	EventTaskUpdate = "task-update"
	EventUserUpdate = "user-update"
)

var ErrMalformedFrame = errors.New("malformed frame")

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type taskUpdated struct {
	UserLetter string          `json:"userLetter"`
	TaskData   json.RawMessage `json:"taskData"`
}

type userUpdated struct {
	UserLetter string          `json:"userLetter"`
	UserData   json.RawMessage `json:"userData"`
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", ErrMalformedFrame)
	}
	return env, nil
}

// DecodeJoin returns the identity string carried by join-user.
// The value is not validated here.
func DecodeJoin(env Envelope) (string, error) {
	var raw string
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return "", fmt.Errorf("%w: join-user data: %w", ErrMalformedFrame, err)
	}
	return raw, nil
}

// DecodeMutation turns task-updated / user-updated into a MutationEvent.
// The target identity is taken as sent; an identity outside the closed
// set resolves to an empty room downstream.
func DecodeMutation(env Envelope) (domain.MutationEvent, error) {
	switch env.Event {
	case EventTaskUpdated:
		var p taskUpdated
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return domain.MutationEvent{}, fmt.Errorf("%w: %s data: %w", ErrMalformedFrame, env.Event, err)
		}
		return domain.MutationEvent{
			Target:  domain.Identity(p.UserLetter),
			Kind:    domain.TaskMutation,
			Payload: p.TaskData,
		}, nil
	case EventUserUpdated:
		var p userUpdated
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return domain.MutationEvent{}, fmt.Errorf("%w: %s data: %w", ErrMalformedFrame, env.Event, err)
		}
		return domain.MutationEvent{
			Target:  domain.Identity(p.UserLetter),
			Kind:    domain.UserMutation,
			Payload: p.UserData,
		}, nil
	}
	return domain.MutationEvent{}, fmt.Errorf("%w: %q is not a mutation", ErrMalformedFrame, env.Event)
}

// OutboundEvent maps a mutation kind to the event name its members receive.
func OutboundEvent(kind domain.MutationKind) (string, error) {
	switch kind {
	case domain.TaskMutation:
		return EventTaskUpdate, nil
	case domain.UserMutation:
		return EventUserUpdate, nil
	}
	return "", fmt.Errorf("%w: %d", domain.ErrUnknownKind, kind)
}

// EncodeMutation builds the outbound frame for evt. The payload stays
// semantically unchanged; insignificant whitespace is compacted.
func EncodeMutation(evt domain.MutationEvent) ([]byte, error) {
	name, err := OutboundEvent(evt.Kind)
	if err != nil {
		return nil, err
	}
	return Encode(name, evt.Payload)
}

func Encode(event string, data json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Envelope{Event: event, Data: data}); err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
