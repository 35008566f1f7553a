package event

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

func TestLotteryChannel(t *testing.T) {
	assert.Equal(t, "lottery.7", LotteryChannel(7))
}

func TestHubPublisherConcurrentPublish(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	defer func() { _ = conn.Close() }()

	publisher := NewHubPublisher(discardLogger(), conn)

	const (
		writers         = 32
		eventsPerWriter = 16
	)

	var wg sync.WaitGroup

	errs := make(chan error, writers*eventsPerWriter)

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for j := 0; j < eventsPerWriter; j++ {
				msg := NewMessage(LotteryChannel(int64(id)), EventTicketPurchased, map[string]interface{}{
					"ticketId": j,
				})

				if err := publisher.Publish(msg); err != nil {
					errs <- err
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
