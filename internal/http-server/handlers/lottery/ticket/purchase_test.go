package ticket

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/event"
	"github.com/Shobhit2205/winisol-server/internal/http-server/middleware/verifytx"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type fakeSales struct {
	exists  bool
	saleErr error
	sales   int
}

func (f *fakeSales) ExistsLottery(int64) (bool, error) {
	return f.exists, nil
}

func (f *fakeSales) RecordTicketSale(*sql.Tx, int64) error {
	if f.saleErr != nil {
		return f.saleErr
	}

	f.sales++

	return nil
}

type fakeTickets struct {
	existing *model.Ticket
	saveErr  error
	saved    []model.Ticket
}

func (f *fakeTickets) SaveTicket(_ *sql.Tx, ticket model.Ticket) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}

	f.saved = append(f.saved, ticket)

	return int64(len(f.saved)), nil
}

func (f *fakeTickets) FindTicketBySignature(string) (*model.Ticket, error) {
	return f.existing, nil
}

type fakeTx struct {
	commits   int
	rollbacks int
}

func (f *fakeTx) StartTransaction() (*sql.Tx, error) { return nil, nil }

func (f *fakeTx) RollbackTransaction(*sql.Tx) error {
	f.rollbacks++

	return nil
}

func (f *fakeTx) CommitTransaction(*sql.Tx) error {
	f.commits++

	return nil
}

type capturingPublisher struct {
	messages []event.Message
}

func (c *capturingPublisher) Publish(m event.Message) error {
	c.messages = append(c.messages, m)

	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestPurchase(t *testing.T) {
	cases := []struct {
		name         string
		sales        *fakeSales
		tickets      *fakeTickets
		ticketID     string
		wantStatus   int
		wantCategory resp.Category
		wantSales    int
		wantRollback int
		wantCommit   int
		wantEvents   int
	}{
		{
			name:       "Success",
			sales:      &fakeSales{exists: true},
			tickets:    &fakeTickets{},
			ticketID:   "MyLotto #7-42",
			wantStatus: http.StatusCreated,
			wantSales:  1,
			wantCommit: 1,
			wantEvents: 1,
		},
		{
			name:         "LotteryMissing",
			sales:        &fakeSales{exists: false},
			tickets:      &fakeTickets{},
			ticketID:     "MyLotto #7-42",
			wantStatus:   http.StatusNotFound,
			wantCategory: resp.CategoryNotFound,
		},
		{
			name:         "ReplayedSignature",
			sales:        &fakeSales{exists: true},
			tickets:      &fakeTickets{existing: &model.Ticket{ID: 1}},
			ticketID:     "MyLotto #7-42",
			wantStatus:   http.StatusBadRequest,
			wantCategory: resp.CategoryConflict,
		},
		{
			name:  "ReplayRacesPastPreCheck",
			sales: &fakeSales{exists: true},
			tickets: &fakeTickets{
				saveErr: fmt.Errorf("save: %w", &mysql.MySQLError{Number: 1062, Message: "duplicate entry"}),
			},
			ticketID:     "MyLotto #7-42",
			wantStatus:   http.StatusBadRequest,
			wantCategory: resp.CategoryConflict,
			wantRollback: 1,
		},
		{
			name: "LotteryClosedOrSoldOut",
			sales: &fakeSales{
				exists:  true,
				saleErr: fmt.Errorf("record: %w", sql.ErrNoRows),
			},
			tickets:      &fakeTickets{},
			ticketID:     "MyLotto #7-42",
			wantStatus:   http.StatusBadRequest,
			wantCategory: resp.CategoryConflict,
			wantRollback: 1,
		},
		{
			name:         "NoVerifiedTicketID",
			sales:        &fakeSales{exists: true},
			tickets:      &fakeTickets{},
			wantStatus:   http.StatusInternalServerError,
			wantCategory: resp.CategoryInternal,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			txRep := &fakeTx{}
			publisher := &capturingPublisher{}

			handler := NewPurchase(discardLogger(), tc.sales, tc.tickets, txRep, publisher)

			body, err := json.Marshal(Request{
				LotteryID: 7,
				PublicKey: "buyer",
				Signature: "sig",
			})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/buy-ticket", bytes.NewReader(body))
			if tc.ticketID != "" {
				req = req.WithContext(verifytx.WithTicketID(req.Context(), tc.ticketID))
			}

			rec := httptest.NewRecorder()

			handler.New().ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantSales, tc.sales.sales)
			assert.Equal(t, tc.wantRollback, txRep.rollbacks)
			assert.Equal(t, tc.wantCommit, txRep.commits)
			assert.Len(t, publisher.messages, tc.wantEvents)

			var got Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

			if tc.wantCategory != "" {
				assert.False(t, got.Success)
				assert.Equal(t, tc.wantCategory, got.Category)

				return
			}

			assert.True(t, got.Success)
			require.NotNil(t, got.Ticket)
			assert.Equal(t, tc.ticketID, got.Ticket.TicketID)
			assert.Equal(t, "buyer", got.Ticket.BuyerPublicKey)
		})
	}
}

func TestPurchasePublishesOnLotteryChannel(t *testing.T) {
	t.Parallel()

	publisher := &capturingPublisher{}
	handler := NewPurchase(discardLogger(), &fakeSales{exists: true}, &fakeTickets{}, &fakeTx{}, publisher)

	body, _ := json.Marshal(Request{LotteryID: 12, PublicKey: "buyer", Signature: "sig"})

	req := httptest.NewRequest(http.MethodPost, "/buy-ticket", bytes.NewReader(body))
	req = req.WithContext(verifytx.WithTicketID(req.Context(), "Mega Draw #12-3"))

	rec := httptest.NewRecorder()
	handler.New().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, publisher.messages, 1)

	msg := publisher.messages[0]
	assert.Equal(t, "lottery.12", msg.Channel)
	assert.Equal(t, event.EventTicketPurchased, msg.Event)
	assert.Equal(t, "Mega Draw #12-3", msg.Data["ticketId"])
}
