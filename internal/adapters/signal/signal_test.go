package signal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/studysync/internal/app"
	"github.com/dkeye/studysync/internal/core"
	"github.com/dkeye/studysync/internal/domain"
)

// wsPair returns the client side of a live websocket. The server side
// only holds the socket open until the test ends.
func wsPair(t *testing.T) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		<-done
	}))
	t.Cleanup(func() {
		close(done)
		srv.Close()
	})

	ws, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return ws
}

func TestWsSignalConn_TrySendFullBuffer(t *testing.T) {
	conn := newWsSignalConn("c1", wsPair(t), 2)
	t.Cleanup(conn.Close)

	require.NoError(t, conn.TrySend(core.Frame("one")))
	require.NoError(t, conn.TrySend(core.Frame("two")))

	start := time.Now()
	err := conn.TrySend(core.Frame("three"))
	assert.ErrorIs(t, err, core.ErrBackpressure)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "TrySend must not wait for the writer")
	assert.Len(t, conn.send, 2)
}

func TestWsSignalConn_Close(t *testing.T) {
	conn := newWsSignalConn("c1", wsPair(t), 4)
	require.NoError(t, conn.TrySend(core.Frame("queued")))

	conn.Close()
	assert.NotPanics(t, conn.Close, "second close")

	assert.ErrorIs(t, conn.TrySend(core.Frame("late")), core.ErrConnectionClosed)

	var drained []string
	for f := range conn.send {
		drained = append(drained, string(f))
	}
	assert.Equal(t, []string{"queued"}, drained, "close keeps buffered frames and ends the channel")
}

func TestWsSignalConn_DisconnectPolicyClosesSlowMember(t *testing.T) {
	reg := app.NewRegistry()
	sender := newWsSignalConn("c1", wsPair(t), 4)
	slow := newWsSignalConn("c2", wsPair(t), 1)
	t.Cleanup(sender.Close)
	t.Cleanup(slow.Close)

	require.NoError(t, reg.Register("c1", "", sender))
	require.NoError(t, reg.Register("c2", "", slow))
	_, err := reg.Assign("c1", domain.IdentityA)
	require.NoError(t, err)
	_, err = reg.Assign("c2", domain.IdentityA)
	require.NoError(t, err)

	require.NoError(t, slow.TrySend(core.Frame("backlog")))

	f := app.NewFanout(reg, app.DisconnectPolicy{})
	res, err := f.Relay("c1", domain.MutationEvent{
		Target:  domain.IdentityA,
		Kind:    domain.TaskMutation,
		Payload: json.RawMessage(`{"id":1}`),
	})

	require.NoError(t, err)
	assert.Zero(t, res.SendTo)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, core.ConnID("c2"), res.Dropped[0].ID)
	assert.ErrorIs(t, slow.TrySend(core.Frame("after")), core.ErrConnectionClosed)
	assert.NoError(t, sender.TrySend(core.Frame("sender untouched")))
}
