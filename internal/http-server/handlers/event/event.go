package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pusher/pusher-http-go/v5"
	"golang.org/x/exp/slog"
)

// Channels and event names published by the lottery flows.
const (
	ChannelWinners = "winners"

	EventTicketPurchased = "ticket-purchased"
	EventWinnerRevealed  = "winner-revealed"
)

func LotteryChannel(lotteryID int64) string {
	return fmt.Sprintf("lottery.%d", lotteryID)
}

type Message struct {
	ID      uuid.UUID              `json:"id"`
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Data    map[string]interface{} `json:"data"`
}

func NewMessage(channel, name string, data map[string]interface{}) Message {
	return Message{
		ID:      uuid.New(),
		Channel: channel,
		Event:   name,
		Data:    data,
	}
}

// Publisher fans a lottery event out to subscribed clients. Best effort:
// callers log failures and move on.
type Publisher interface {
	Publish(m Message) error
}

// HubPublisher writes events onto a long-lived connection to the hub in
// cmd/ws, which rebroadcasts per channel.
type HubPublisher struct {
	log  *slog.Logger
	conn *websocket.Conn

	// The websocket package allows at most one concurrent writer, and
	// handlers publish from their own request goroutines.
	mu sync.Mutex
}

func NewHubPublisher(log *slog.Logger, conn *websocket.Conn) *HubPublisher {
	return &HubPublisher{
		log:  log,
		conn: conn,
	}
}

func (p *HubPublisher) Publish(m Message) error {
	const op = "handlers.event.HubPublisher.Publish"

	msg, err := json.Marshal(m)
	if err != nil {
		p.log.Error("failed to marshal message", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	err = p.conn.WriteMessage(websocket.TextMessage, msg)
	p.mu.Unlock()

	if err != nil {
		p.log.Error("failed to publish event", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// PusherPublisher delivers through Pusher Channels instead of the local
// hub. Selected by config when Pusher credentials are present.
type PusherPublisher struct {
	log    *slog.Logger
	pusher *pusher.Client
}

func NewPusherPublisher(log *slog.Logger, pusherClient *pusher.Client) *PusherPublisher {
	return &PusherPublisher{
		log:    log,
		pusher: pusherClient,
	}
}

func (p *PusherPublisher) Publish(m Message) error {
	if err := p.pusher.Trigger(m.Channel, m.Event, m.Data); err != nil {
		p.log.Error("failed to trigger pusher event", sl.Err(err))

		return err
	}

	return nil
}

// NopPublisher drops events when no transport is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(Message) error {
	return nil
}
