package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/KevinKickass/HotmockBridge/internal/ports"
)

type received struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server, want int) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.GetClientCount() == want }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubPublishesPortValues(t *testing.T) {
	require := require.New(t)
	hub, srv := startHub(t)
	conn := dial(t, hub, srv, 1)

	hub.PublishPortValue(ports.Update{Port: "AI1", Connector: "AI01", Value: 2.5, Timestamp: time.Now()})

	msg := read(t, conn)
	require.Equal(MessageTypePortValue, msg.Type)

	var u ports.Update
	require.NoError(json.Unmarshal(msg.Data, &u))
	require.Equal("AI1", u.Port)
	require.Equal("AI01", u.Connector)
	require.Equal(2.5, u.Value)
}

func TestHubSubscriptionFilters(t *testing.T) {
	require := require.New(t)
	hub, srv := startHub(t)
	conn := dial(t, hub, srv, 1)

	require.NoError(conn.WriteJSON(ClientMessage{Type: "subscribe", Ports: []string{"DI2"}}))
	ack := read(t, conn)
	require.Equal(MessageTypeSubscribed, ack.Type)
	require.JSONEq(`{"ports":["DI2"]}`, string(ack.Data))

	hub.PublishPortValue(ports.Update{Port: "DI1", Value: 1})
	hub.PublishPortValue(ports.Update{Port: "DI2", Value: 3})
	hub.PublishComponentState("ERROR", "ACTIVE", nil)

	msg := read(t, conn)
	require.Equal(MessageTypePortValue, msg.Type)
	require.Contains(string(msg.Data), `"port":"DI2"`)

	msg = read(t, conn)
	require.Equal(MessageTypeComponentState, msg.Type)
	require.JSONEq(`{"state":"ERROR","previous_state":"ACTIVE"}`, string(msg.Data))
}

func TestHubRejectsUnknownClientMessage(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, hub, srv, 1)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "auth"}))
	msg := read(t, conn)
	require.Equal(t, MessageTypeError, msg.Type)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, hub, srv, 1)
	dial(t, hub, srv, 2)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)
}
