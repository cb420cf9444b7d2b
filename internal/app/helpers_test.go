package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/studysync/internal/core"
)

type recordingConn struct {
	mu      sync.Mutex
	frames  []core.Frame
	closed  bool
	sendErr error
}

func (c *recordingConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *recordingConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recordingConn) received() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func frame(t *testing.T, event string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	b, err := json.Marshal(map[string]any{"event": event, "data": json.RawMessage(raw)})
	require.NoError(t, err)
	return b
}

func memberIDs(members []core.Member) []core.ConnID {
	out := make([]core.ConnID, 0, len(members))
	for _, m := range members {
		out = append(out, m.ID)
	}
	return out
}
