package winner

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Shobhit2205/winisol-server/internal/config"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/patrickmn/go-cache"
	"golang.org/x/exp/slog"
)

type StandardWins interface {
	FindUnclaimedWins() ([]model.Lottery, error)
	FindClaimedWinsByWinner(publicKey string) ([]model.Lottery, error)
	FindWinners() ([]model.Lottery, error)
}

type LimitedWins interface {
	FindUnclaimedWins() ([]model.LimitedLottery, error)
	FindClaimedWinsByWinner(publicKey string) ([]model.LimitedLottery, error)
	FindWinners() ([]model.LimitedLottery, error)
}

// OwnershipChecker reports whether the wallet currently holds the named
// winning-ticket NFT. False covers both "not owned" and "could not check".
type OwnershipChecker interface {
	OwnsAsset(ctx context.Context, ownerPublicKey, assetName string) bool
}

type ByPublicKeyResponse struct {
	resp.Response
	CurrentWinnings  []model.WinnerSummary `json:"currentWinnings"`
	PreviousWinnings []model.WinnerSummary `json:"previousWinnings"`
}

type AllResponse struct {
	resp.Response
	Winners []model.WinnerSummary `json:"winners"`
	Total   int                   `json:"total"`
}

// Winner serves the public winner lookups across both lottery variants.
// Claimable-now is decided by the ownership oracle, since the winning
// ticket NFT may have changed hands after the reveal. Positive oracle
// verdicts are cached briefly to spare the RPC endpoint on hot wallets.
type Winner struct {
	log      *slog.Logger
	standard StandardWins
	limited  LimitedWins
	oracle   OwnershipChecker
	verdicts *cache.Cache
	timeout  time.Duration
}

func NewWinner(
	log *slog.Logger,
	standard StandardWins,
	limited LimitedWins,
	oracle OwnershipChecker,
	timeout time.Duration) *Winner {
	return &Winner{
		log:      log,
		standard: standard,
		limited:  limited,
		oracle:   oracle,
		verdicts: cache.New(time.Minute, 5*time.Minute),
		timeout:  timeout,
	}
}

func (h *Winner) ByPublicKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.winner.ByPublicKey"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		publicKey := chi.URLParam(r, "publicKey")
		if publicKey == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing public key", resp.CategoryInvalidInput))

			return
		}

		unclaimedStandard, err := h.standard.FindUnclaimedWins()
		if err != nil {
			h.internal(w, r, log, "failed to fetch unclaimed wins", err)

			return
		}

		unclaimedLimited, err := h.limited.FindUnclaimedWins()
		if err != nil {
			h.internal(w, r, log, "failed to fetch unclaimed limited wins", err)

			return
		}

		current := make([]model.WinnerSummary, 0)

		for i := range unclaimedStandard {
			lottery := &unclaimedStandard[i]

			if lottery.WinnerTicketID == nil {
				continue
			}

			if h.ownsTicket(r.Context(), publicKey, *lottery.WinnerTicketID) {
				current = append(current, standardSummary(lottery))
			}
		}

		for i := range unclaimedLimited {
			lottery := &unclaimedLimited[i]

			if lottery.WinnerTicketID == nil {
				continue
			}

			if h.ownsTicket(r.Context(), publicKey, *lottery.WinnerTicketID) {
				current = append(current, limitedSummary(lottery))
			}
		}

		claimedStandard, err := h.standard.FindClaimedWinsByWinner(publicKey)
		if err != nil {
			h.internal(w, r, log, "failed to fetch claimed wins", err)

			return
		}

		claimedLimited, err := h.limited.FindClaimedWinsByWinner(publicKey)
		if err != nil {
			h.internal(w, r, log, "failed to fetch claimed limited wins", err)

			return
		}

		previous := make([]model.WinnerSummary, 0, len(claimedStandard)+len(claimedLimited))

		for i := range claimedStandard {
			previous = append(previous, standardSummary(&claimedStandard[i]))
		}

		for i := range claimedLimited {
			previous = append(previous, limitedSummary(&claimedLimited[i]))
		}

		render.JSON(w, r, ByPublicKeyResponse{
			Response:         resp.OK("Lottery winners found successfully"),
			CurrentWinnings:  current,
			PreviousWinnings: previous,
		})
	}
}

func (h *Winner) All() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.winner.All"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		standardWinners, err := h.standard.FindWinners()
		if err != nil {
			h.internal(w, r, log, "failed to fetch winners", err)

			return
		}

		limitedWinners, err := h.limited.FindWinners()
		if err != nil {
			h.internal(w, r, log, "failed to fetch limited winners", err)

			return
		}

		winners := make([]model.WinnerSummary, 0, len(standardWinners)+len(limitedWinners))

		for i := range standardWinners {
			winners = append(winners, standardSummary(&standardWinners[i]))
		}

		for i := range limitedWinners {
			winners = append(winners, limitedSummary(&limitedWinners[i]))
		}

		// Newest declared winner first, undeclared at the end.
		sort.SliceStable(winners, func(i, j int) bool {
			a, b := winners[i].WinnerDeclaredTime, winners[j].WinnerDeclaredTime
			if a == nil {
				return false
			}
			if b == nil {
				return true
			}

			return a.After(*b)
		})

		render.JSON(w, r, AllResponse{
			Response: resp.OK("Winners fetched successfully"),
			Winners:  winners,
			Total:    len(winners),
		})
	}
}

// ownsTicket consults the verdict cache before the oracle. Only positive
// verdicts are cached: a false may be a transient RPC failure and must not
// stick.
func (h *Winner) ownsTicket(ctx context.Context, publicKey, ticketID string) bool {
	key := publicKey + "|" + ticketID

	if _, found := h.verdicts.Get(key); found {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if !h.oracle.OwnsAsset(ctx, publicKey, ticketID) {
		return false
	}

	h.verdicts.Set(key, true, cache.DefaultExpiration)

	return true
}

func (h *Winner) internal(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	log.Error(msg, sl.Err(err))

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))
}

func standardSummary(lottery *model.Lottery) model.WinnerSummary {
	summary := model.WinnerSummary{
		ID:                    lottery.ID,
		LotteryName:           lottery.LotteryName,
		LotterySymbol:         lottery.LotterySymbol,
		LotteryURI:            lottery.LotteryURI,
		Image:                 lottery.Image,
		LotteryType:           config.Regular,
		Price:                 lottery.Price.String(),
		WinningAmount:         lottery.WinningAmount().String(),
		WinnerPublicKey:       lottery.WinnerPublicKey,
		WinnerDeclaredTime:    lottery.WinnerDeclaredTime,
		RevealWinnerSignature: lottery.RevealWinnerSignature,
		PriceClaimed:          lottery.PriceClaimed,
		PriceClaimedSignature: lottery.PriceClaimedSignature,
		PriceClaimedTime:      lottery.PriceClaimedTime,
	}

	if lottery.WinnerTicketID != nil {
		summary.WinnerTicketID = *lottery.WinnerTicketID
	}

	return summary
}

func limitedSummary(lottery *model.LimitedLottery) model.WinnerSummary {
	summary := model.WinnerSummary{
		ID:                    lottery.ID,
		LotteryName:           lottery.LotteryName,
		LotterySymbol:         lottery.LotterySymbol,
		LotteryURI:            lottery.LotteryURI,
		Image:                 lottery.Image,
		LotteryType:           config.Limited,
		Price:                 lottery.Price.String(),
		WinningAmount:         lottery.WinningAmount().String(),
		WinnerPublicKey:       lottery.WinnerPublicKey,
		WinnerDeclaredTime:    lottery.WinnerDeclaredTime,
		RevealWinnerSignature: lottery.RevealWinnerSignature,
		PriceClaimed:          lottery.PriceClaimed,
		PriceClaimedSignature: lottery.PriceClaimedSignature,
		PriceClaimedTime:      lottery.PriceClaimedTime,
	}

	if lottery.WinnerTicketID != nil {
		summary.WinnerTicketID = *lottery.WinnerTicketID
	}

	return summary
}
