package handler

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
	"golang.org/x/exp/slog"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

func (hub *Hub) subscriberCount(channel string) int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	return len(hub.Channels[channel])
}

func dial(t *testing.T, srv *httptest.Server, channel string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?channel=" + channel

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(discardLogger())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	subscriber := dial(t, srv, "lottery.9")
	defer func() { _ = subscriber.Close() }()

	publisher := dial(t, srv, "lottery.9")
	defer func() { _ = publisher.Close() }()

	require.Eventually(t, func() bool {
		return hub.subscriberCount("lottery.9") == 2
	}, time.Second, 10*time.Millisecond)

	sent := Message{
		Channel: "lottery.9",
		Event:   "ticket-purchased",
		Data:    map[string]interface{}{"ticketId": "MyLotto #9-1"},
	}

	payload, err := json.Marshal(sent)
	require.NoError(t, err)
	require.NoError(t, publisher.WriteMessage(websocket.TextMessage, payload))

	require.NoError(t, subscriber.SetReadDeadline(time.Now().Add(time.Second)))

	_, data, err := subscriber.ReadMessage()
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, sent.Channel, got.Channel)
	assert.Equal(t, sent.Event, got.Event)
	assert.Equal(t, "MyLotto #9-1", got.Data["ticketId"])
}

func TestClosedConnectionIsUnsubscribed(t *testing.T) {
	hub := NewHub(discardLogger())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dial(t, srv, "lottery.4")

	require.Eventually(t, func() bool {
		return hub.subscriberCount("lottery.4") == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return hub.subscriberCount("lottery.4") == 0
	}, time.Second, 10*time.Millisecond)
}
