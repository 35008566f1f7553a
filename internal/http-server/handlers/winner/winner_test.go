package winner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shobhit2205/winisol-server/internal/config"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type fakeStandard struct {
	unclaimed []model.Lottery
	claimed   []model.Lottery
	winners   []model.Lottery
}

func (f *fakeStandard) FindUnclaimedWins() ([]model.Lottery, error) { return f.unclaimed, nil }
func (f *fakeStandard) FindClaimedWinsByWinner(string) ([]model.Lottery, error) {
	return f.claimed, nil
}
func (f *fakeStandard) FindWinners() ([]model.Lottery, error) { return f.winners, nil }

type fakeLimited struct {
	unclaimed []model.LimitedLottery
	claimed   []model.LimitedLottery
	winners   []model.LimitedLottery
}

func (f *fakeLimited) FindUnclaimedWins() ([]model.LimitedLottery, error) { return f.unclaimed, nil }
func (f *fakeLimited) FindClaimedWinsByWinner(string) ([]model.LimitedLottery, error) {
	return f.claimed, nil
}
func (f *fakeLimited) FindWinners() ([]model.LimitedLottery, error) { return f.winners, nil }

type fakeOracle struct {
	owned map[string]bool
	calls int
}

func (f *fakeOracle) OwnsAsset(_ context.Context, _, assetName string) bool {
	f.calls++

	return f.owned[assetName]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func strPtr(s string) *string { return &s }

func standardWin(id int64, ticketID string, pot float64) model.Lottery {
	return model.Lottery{
		ID:          id,
		LotteryName: "MyLotto",
		Price:       decimal.NewFromFloat(0.5),
		PotAmount:   decimal.NewFromFloat(pot),
		Status:      config.StatusActive,
		Outcome: model.Outcome{
			WinnerChosen:   true,
			WinnerTicketID: strPtr(ticketID),
		},
	}
}

func limitedWin(id int64, ticketID string, pot float64) model.LimitedLottery {
	return model.LimitedLottery{
		ID:             id,
		LotteryName:    "Mega Draw",
		Price:          decimal.NewFromFloat(1),
		TotalPotAmount: decimal.NewFromFloat(pot),
		Status:         config.StatusActive,
		Outcome: model.Outcome{
			WinnerChosen:   true,
			WinnerTicketID: strPtr(ticketID),
		},
	}
}

func serveByPublicKey(h *Winner, publicKey string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Get("/winner-by-public-key/{publicKey}", h.ByPublicKey())

	req := httptest.NewRequest(http.MethodGet, "/winner-by-public-key/"+publicKey, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	return rec
}

func TestByPublicKey(t *testing.T) {
	t.Parallel()

	standard := &fakeStandard{
		unclaimed: []model.Lottery{standardWin(1, "MyLotto #1-4", 10)},
		claimed:   []model.Lottery{standardWin(2, "MyLotto #2-8", 20)},
	}
	limited := &fakeLimited{
		unclaimed: []model.LimitedLottery{limitedWin(3, "Mega Draw #3-1", 50)},
	}
	oracle := &fakeOracle{owned: map[string]bool{"MyLotto #1-4": true}}

	handler := NewWinner(discardLogger(), standard, limited, oracle, time.Second)

	rec := serveByPublicKey(handler, "holder-wallet")

	require.Equal(t, http.StatusOK, rec.Code)

	var got ByPublicKeyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	// Only the owned ticket is claimable; the limited win belongs to
	// whoever holds its NFT, and this wallet does not.
	require.Len(t, got.CurrentWinnings, 1)
	assert.Equal(t, "MyLotto #1-4", got.CurrentWinnings[0].WinnerTicketID)
	assert.Equal(t, "9", got.CurrentWinnings[0].WinningAmount)
	assert.Equal(t, config.Regular, got.CurrentWinnings[0].LotteryType)

	require.Len(t, got.PreviousWinnings, 1)
	assert.Equal(t, "MyLotto #2-8", got.PreviousWinnings[0].WinnerTicketID)
}

func TestByPublicKeyCachesPositiveVerdicts(t *testing.T) {
	t.Parallel()

	standard := &fakeStandard{
		unclaimed: []model.Lottery{standardWin(1, "MyLotto #1-4", 10)},
	}
	oracle := &fakeOracle{owned: map[string]bool{"MyLotto #1-4": true}}

	handler := NewWinner(discardLogger(), standard, &fakeLimited{}, oracle, time.Second)

	serveByPublicKey(handler, "holder-wallet")
	serveByPublicKey(handler, "holder-wallet")

	assert.Equal(t, 1, oracle.calls)
}

func TestByPublicKeyDoesNotCacheNegativeVerdicts(t *testing.T) {
	t.Parallel()

	standard := &fakeStandard{
		unclaimed: []model.Lottery{standardWin(1, "MyLotto #1-4", 10)},
	}
	oracle := &fakeOracle{owned: map[string]bool{}}

	handler := NewWinner(discardLogger(), standard, &fakeLimited{}, oracle, time.Second)

	serveByPublicKey(handler, "holder-wallet")
	serveByPublicKey(handler, "holder-wallet")

	assert.Equal(t, 2, oracle.calls)
}

func TestAllWinnersSortedNewestFirst(t *testing.T) {
	t.Parallel()

	older := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)

	olderWin := standardWin(1, "MyLotto #1-4", 10)
	olderWin.WinnerDeclaredTime = &older

	newerWin := limitedWin(2, "Mega Draw #2-1", 50)
	newerWin.WinnerDeclaredTime = &newer

	undeclared := standardWin(3, "MyLotto #3-2", 5)

	handler := NewWinner(discardLogger(),
		&fakeStandard{winners: []model.Lottery{olderWin, undeclared}},
		&fakeLimited{winners: []model.LimitedLottery{newerWin}},
		&fakeOracle{}, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/get-all-winners", nil)
	rec := httptest.NewRecorder()

	handler.All().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got AllResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	require.Equal(t, 3, got.Total)
	assert.Equal(t, "Mega Draw #2-1", got.Winners[0].WinnerTicketID)
	assert.Equal(t, "MyLotto #1-4", got.Winners[1].WinnerTicketID)
	assert.Equal(t, "MyLotto #3-2", got.Winners[2].WinnerTicketID)

	// Limited payout is the full precomputed pot, standard is 90% of pot.
	assert.Equal(t, "50", got.Winners[0].WinningAmount)
	assert.Equal(t, "9", got.Winners[1].WinningAmount)
}
