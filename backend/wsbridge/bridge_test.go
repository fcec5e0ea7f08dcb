package wsbridge

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/gesture"
)

func startBridge(t *testing.T) (*gesture.Engine, *Bridge, *websocket.Conn) {
	t.Helper()
	eng, err := gesture.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	sub, err := eng.NewSubscription("all", gesture.SubscriptionNone)
	require.NoError(t, err)
	require.NoError(t, sub.Activate())

	var tick time.Duration
	b := New(eng, Config{Clock: func() time.Duration { tick += 10 * time.Millisecond; return tick }})
	eng.RegisterEventCallback(b.Broadcast)

	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return eng, b, conn
}

func dispatchUntil(t *testing.T, eng *gesture.Engine, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		eng.DispatchEvents()
		return cond()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBridgeHandshake(t *testing.T) {
	eng, b, conn := startBridge(t)

	require.NoError(t, conn.WriteJSON(HelloMessage{Type: "hello", Name: "tablet", Touches: 5}))
	var welcome WelcomeMessage
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "welcome", welcome.Type)
	assert.Equal(t, 100, welcome.Device)
	assert.Equal(t, protocolVersion, welcome.Version)

	dispatchUntil(t, eng, func() bool { return eng.Device(100) != nil })
	assert.Equal(t, "tablet", eng.Device(100).Name())
	assert.Equal(t, 1, b.Sessions())

	require.NoError(t, conn.Close())
	dispatchUntil(t, eng, func() bool { return eng.Device(100) == nil })
}

func TestBridgeStreamsGesturesBack(t *testing.T) {
	eng, _, conn := startBridge(t)

	require.NoError(t, conn.WriteJSON(HelloMessage{Type: "hello", Touches: 5}))
	var welcome WelcomeMessage
	require.NoError(t, conn.ReadJSON(&welcome))

	require.NoError(t, conn.WriteJSON(FrameMessage{Type: "frame", Touches: []TouchMessage{{ID: 1, Kind: "begin", X: 10, Y: 10}}}))
	require.NoError(t, conn.WriteJSON(FrameMessage{Type: "frame", Touches: []TouchMessage{{ID: 1, Kind: "end", X: 10, Y: 10}}}))

	got := make(chan EventMessage, 64)
	go func() {
		for {
			var msg EventMessage
			if err := conn.ReadJSON(&msg); err != nil {
				close(got)
				return
			}
			got <- msg
		}
	}()

	var tap []string
	dispatchUntil(t, eng, func() bool {
		for {
			select {
			case msg, ok := <-got:
				if !ok {
					return true
				}
				if msg.Name == gesture.GestureTap {
					tap = append(tap, msg.Event)
					assert.Equal(t, welcome.Device, msg.Device)
					assert.Equal(t, []uint32{1}, msg.Touches)
				}
			default:
				return len(tap) == 2
			}
		}
	})
	assert.Equal(t, []string{"gesture-begin", "gesture-end"}, tap)
}

func TestBridgeRejectsBadHello(t *testing.T) {
	_, b, conn := startBridge(t)
	require.NoError(t, conn.WriteJSON(FrameMessage{Type: "frame"}))
	var msg WelcomeMessage
	assert.Error(t, conn.ReadJSON(&msg), "server closes the connection")
	assert.Equal(t, 0, b.Sessions())
}
