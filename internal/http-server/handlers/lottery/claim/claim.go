package claim

import (
	"net/http"
	"strconv"

	mwauth "github.com/Shobhit2205/winisol-server/internal/http-server/middleware/auth"
	"github.com/Shobhit2205/winisol-server/internal/http-server/middleware/verifytx"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slog"
)

type WinningsRequest struct {
	LotteryID int64  `json:"lotteryId" validate:"required"`
	PublicKey string `json:"publicKey" validate:"required"`
	Signature string `json:"signature" validate:"required"`
	TicketID  string `json:"ticketId"`
}

type AuthorityRequest struct {
	LotteryID int64  `json:"lotteryId" validate:"required"`
	PublicKey string `json:"publicKey" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type CompleteRequest struct {
	LotteryID int64 `json:"lotteryId" validate:"required"`
}

// SettlementStore covers the settlement tail of a lottery: both prize
// claims, completion and deletion. Both variant repositories satisfy it.
type SettlementStore interface {
	GetSettlementState(id int64) (*model.SettlementState, error)
	ClaimWinnings(id int64, claimantPublicKey, claimSignature string) (bool, error)
	ClaimAuthorityWinnings(id int64, claimSignature string) (bool, error)
	Complete(id int64) (bool, error)
	DeleteLottery(id int64) (bool, error)
}

// Claim settles a decided lottery. The winner-side claim arrives through
// the chain verification middleware; the claimant is whoever holds the
// winning ticket NFT, so the claimed public key is written back as winner.
type Claim struct {
	log            *slog.Logger
	validator      *validator.Validate
	store          SettlementStore
	adminPublicKey string
}

func NewClaim(log *slog.Logger, store SettlementStore, adminPublicKey string) *Claim {
	return &Claim{
		log:            log,
		validator:      validator.New(),
		store:          store,
		adminPublicKey: adminPublicKey,
	}
}

func (c *Claim) Winnings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.claim.Winnings"

		log := c.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req WinningsRequest

		if !c.decodeAndValidate(w, r, log, &req) {
			return
		}

		// The ticket id parsed out of the verified claim transaction is
		// the only one trusted here; the body copy is just cross-checked.
		verifiedTicketID := verifytx.TicketIDFromContext(r.Context())
		if verifiedTicketID == "" {
			log.Error("no verified ticket id in context")

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if req.TicketID != "" && req.TicketID != verifiedTicketID {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Ticket ID does not match the claim transaction", resp.CategoryInvalidInput))

			return
		}

		state, ok := c.loadState(w, r, log, req.LotteryID)
		if !ok {
			return
		}

		if state.PriceClaimed {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Prize already claimed", resp.CategoryConflict))

			return
		}

		if state.WinnerTicketID == nil || *state.WinnerTicketID != verifiedTicketID {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Ticket ID does not match winner's ticket", resp.CategoryInvalidInput))

			return
		}

		updated, err := c.store.ClaimWinnings(req.LotteryID, req.PublicKey, req.Signature)
		if err != nil {
			log.Error("failed to claim winnings", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if !updated {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Prize already claimed", resp.CategoryConflict))

			return
		}

		log.Info("prize claimed",
			slog.Int64("lottery_id", req.LotteryID),
			slog.String("claimant", req.PublicKey))

		render.JSON(w, r, resp.OK("Prize claimed successfully"))
	}
}

func (c *Claim) AuthorityTransfer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.claim.AuthorityTransfer"

		log := c.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req AuthorityRequest

		if !c.decodeAndValidate(w, r, log, &req) {
			return
		}

		claimant := req.PublicKey
		if tokenKey := mwauth.PublicKeyFromContext(r.Context()); tokenKey != "" {
			claimant = tokenKey
		}

		if claimant != c.adminPublicKey {
			log.Info("authority claim attempted by non-authority key")

			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("You are not the authority", resp.CategoryForbidden))

			return
		}

		state, ok := c.loadState(w, r, log, req.LotteryID)
		if !ok {
			return
		}

		if state.AuthorityPriceClaimed {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Authority already claimed", resp.CategoryConflict))

			return
		}

		updated, err := c.store.ClaimAuthorityWinnings(req.LotteryID, req.Signature)
		if err != nil {
			log.Error("failed to claim authority winnings", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if !updated {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Authority already claimed", resp.CategoryConflict))

			return
		}

		log.Info("authority share claimed", slog.Int64("lottery_id", req.LotteryID))

		render.JSON(w, r, resp.OK("Prize claimed successfully"))
	}
}

// Complete flips an ACTIVE lottery to COMPLETED once the winner is chosen
// and both prize sides are claimed. The gate lives in the guarded UPDATE,
// so a losing racer gets the precondition failure, never a double flip.
func (c *Claim) Complete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.claim.Complete"

		log := c.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req CompleteRequest

		if !c.decodeAndValidate(w, r, log, &req) {
			return
		}

		if _, ok := c.loadState(w, r, log, req.LotteryID); !ok {
			return
		}

		updated, err := c.store.Complete(req.LotteryID)
		if err != nil {
			log.Error("failed to complete lottery", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if !updated {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(
				"Cannot complete the lottery. Ensure winner chosen, price claimed by winner and authority.",
				resp.CategoryPreconditionNotMet))

			return
		}

		log.Info("lottery completed", slog.Int64("lottery_id", req.LotteryID))

		render.JSON(w, r, resp.OK("Lottery status updated to COMPLETED"))
	}
}

func (c *Claim) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.claim.Delete"

		log := c.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid lottery id", resp.CategoryInvalidInput))

			return
		}

		deleted, err := c.store.DeleteLottery(id)
		if err != nil {
			log.Error("failed to delete lottery", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if !deleted {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Lottery not found", resp.CategoryNotFound))

			return
		}

		log.Info("lottery deleted", slog.Int64("lottery_id", id))

		render.JSON(w, r, resp.OK("Lottery deleted successfully"))
	}
}

func (c *Claim) loadState(w http.ResponseWriter, r *http.Request, log *slog.Logger, id int64) (*model.SettlementState, bool) {
	state, err := c.store.GetSettlementState(id)
	if err != nil {
		log.Error("failed to load lottery state", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

		return nil, false
	}

	if state == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("Lottery not found", resp.CategoryNotFound))

		return nil, false
	}

	return state, true
}

func (c *Claim) decodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, req interface{}) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("missing required fields", resp.CategoryInvalidInput))

		return false
	}

	if err := c.validator.Struct(req); err != nil {
		validateErr := err.(validator.ValidationErrors)

		log.Error("invalid request", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(validateErr))

		return false
	}

	return true
}
