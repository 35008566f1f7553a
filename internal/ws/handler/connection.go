package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

type Message struct {
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Data    map[string]interface{} `json:"data"`
}

type Subscription struct {
	Conn    *websocket.Conn
	Channel string
}

// Hub fans lottery events out per channel: clients subscribe to
// "lottery.<id>" or "winners", the API publishes into Broadcast.
type Hub struct {
	Channels  map[string]map[*websocket.Conn]bool
	Broadcast chan Message
	Subscribe chan Subscription
	mutex     sync.RWMutex
	log       *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		Channels:  make(map[string]map[*websocket.Conn]bool),
		Broadcast: make(chan Message),
		Subscribe: make(chan Subscription),
		log:       log,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (hub *Hub) Run() {
	for {
		select {
		case sub := <-hub.Subscribe:
			hub.mutex.Lock()
			if hub.Channels[sub.Channel] == nil {
				hub.Channels[sub.Channel] = make(map[*websocket.Conn]bool)
			}
			hub.Channels[sub.Channel][sub.Conn] = true
			hub.mutex.Unlock()

			hub.log.Info("client subscribed", sl.String("channel", sub.Channel))
		case message := <-hub.Broadcast:
			hub.broadcast(message)
		}
	}
}

func (hub *Hub) broadcast(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		hub.log.Error("failed to marshal message", sl.Err(err))

		return
	}

	hub.mutex.RLock()
	receivers := hub.Channels[message.Channel]
	conns := make([]*websocket.Conn, 0, len(receivers))
	for conn := range receivers {
		conns = append(conns, conn)
	}
	hub.mutex.RUnlock()

	hub.log.Info("broadcasting message",
		sl.String("channel", message.Channel),
		sl.String("event", message.Event))

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			hub.log.Error("failed to write message", sl.Err(err))

			hub.drop(message.Channel, conn)
		}
	}
}

func (hub *Hub) drop(channel string, conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	delete(hub.Channels[channel], conn)

	_ = conn.Close()
}

// ServeWS upgrades the connection and subscribes it to the channel named in
// the query string. Messages received from the client are rebroadcast,
// which is how the API process publishes events.
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = ChannelDefault
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error("failed to upgrade connection", sl.Err(err))

		return
	}

	hub.Subscribe <- Subscription{Conn: conn, Channel: channel}

	go hub.readLoop(conn, channel)
}

const ChannelDefault = "winners"

func (hub *Hub) readLoop(conn *websocket.Conn, channel string) {
	defer hub.drop(channel, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var message Message

		if err = json.Unmarshal(data, &message); err != nil {
			hub.log.Error("failed to unmarshal message", sl.Err(err))

			continue
		}

		hub.Broadcast <- message
	}
}
