package reveal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Shobhit2205/winisol-server/internal/chain"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/auth/mail"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/event"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slog"
)

type Request struct {
	LotteryID int64  `json:"lotteryId" validate:"required"`
	Signature string `json:"revealWinnerSignature" validate:"required"`
}

type UpdateRequest struct {
	LotteryID int64  `json:"lotteryId" validate:"required"`
	TicketID  string `json:"ticketId" validate:"required"`
}

type Response struct {
	resp.Response
	WinnerPublicKey string `json:"winnerPublicKey,omitempty"`
	WinnerTicketID  string `json:"winnerTicketId,omitempty"`
}

type WinnerVerifier interface {
	VerifyWinnerReveal(ctx context.Context, signature string) (*chain.TicketFact, error)
}

type TicketFinder interface {
	FindTicketByTicketID(ticketID string) (*model.Ticket, error)
}

type WinnerStore interface {
	ExistsLottery(id int64) (bool, error)
	SetWinner(id int64, winnerPublicKey, winnerTicketID, revealSignature string) (bool, error)
}

// ManualWinnerStore is the operator fallback for a reveal that reached the
// chain but whose report never landed: the winner is set from an explicit
// ticket id, without chain verification.
type ManualWinnerStore interface {
	WinnerStore
	SetWinnerManually(id int64, winnerPublicKey, winnerTicketID string) (bool, error)
}

// Reveal turns the winner fact logged by the on-chain reveal instruction
// into persisted winner state. The winning ticket must have been sold
// through this backend; an unknown ticket id fails the reveal.
type Reveal struct {
	log       *slog.Logger
	validator *validator.Validate
	verifier  WinnerVerifier
	tickets   TicketFinder
	store     ManualWinnerStore
	publisher event.Publisher
	mailer    mail.Sender
	notifyTo  string
	timeout   time.Duration
}

func NewReveal(
	log *slog.Logger,
	verifier WinnerVerifier,
	tickets TicketFinder,
	store ManualWinnerStore,
	publisher event.Publisher,
	mailer mail.Sender,
	notifyTo string,
	timeout time.Duration) *Reveal {
	return &Reveal{
		log:       log,
		validator: validator.New(),
		verifier:  verifier,
		tickets:   tickets,
		store:     store,
		publisher: publisher,
		mailer:    mailer,
		notifyTo:  notifyTo,
		timeout:   timeout,
	}
}

func (rv *Reveal) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.reveal.New"

		log := rv.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if !rv.decodeAndValidate(w, r, log, &req) {
			return
		}

		if !rv.requireLottery(w, r, log, req.LotteryID) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), rv.timeout)
		defer cancel()

		fact, err := rv.verifier.VerifyWinnerReveal(ctx, req.Signature)
		if err != nil {
			category, msg := categorize(err)

			log.Error("winner reveal verification failed", sl.Err(err))

			render.Status(r, resp.Status(category))
			render.JSON(w, r, resp.Error(msg, category))

			return
		}

		// A reveal transaction always names its own lottery in the logs;
		// replaying it against another lottery must not settle that one.
		if fact.LotteryID != req.LotteryID {
			log.Warn("reveal transaction belongs to another lottery",
				slog.Int64("lottery_id", req.LotteryID),
				slog.Int64("fact_lottery_id", fact.LotteryID))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Transaction does not belong to this lottery", resp.CategoryConflict))

			return
		}

		ticket, err := rv.tickets.FindTicketByTicketID(fact.TicketID())
		if err != nil {
			log.Error("failed to look up winning ticket", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if ticket == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Ticket not found", resp.CategoryNotFound))

			return
		}

		updated, err := rv.store.SetWinner(req.LotteryID, ticket.BuyerPublicKey, ticket.TicketID, req.Signature)
		if err != nil {
			log.Error("failed to set winner", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if !updated {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Winner already revealed", resp.CategoryConflict))

			return
		}

		log.Info("winner revealed",
			slog.Int64("lottery_id", req.LotteryID),
			slog.String("winner_ticket_id", ticket.TicketID))

		rv.announce(log, req.LotteryID, fact.Label, ticket)

		render.JSON(w, r, Response{
			Response:        resp.OK("Winner revealed successfully"),
			WinnerPublicKey: ticket.BuyerPublicKey,
			WinnerTicketID:  ticket.TicketID,
		})
	}
}

// UpdateIfNeeded sets the winner from an explicit ticket id. No chain
// verification and no reveal signature; the write-once guard on the winner
// fields still applies.
func (rv *Reveal) UpdateIfNeeded() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.reveal.UpdateIfNeeded"

		log := rv.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req UpdateRequest

		if !rv.decodeAndValidate(w, r, log, &req) {
			return
		}

		if !rv.requireLottery(w, r, log, req.LotteryID) {
			return
		}

		ticket, err := rv.tickets.FindTicketByTicketID(req.TicketID)
		if err != nil {
			log.Error("failed to look up ticket", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if ticket == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Ticket not found", resp.CategoryNotFound))

			return
		}

		updated, err := rv.store.SetWinnerManually(req.LotteryID, ticket.BuyerPublicKey, ticket.TicketID)
		if err != nil {
			log.Error("failed to update winner", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if !updated {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Winner already revealed", resp.CategoryConflict))

			return
		}

		log.Info("winner updated manually",
			slog.Int64("lottery_id", req.LotteryID),
			slog.String("winner_ticket_id", ticket.TicketID))

		render.JSON(w, r, Response{
			Response:        resp.OK("Winner updated successfully"),
			WinnerPublicKey: ticket.BuyerPublicKey,
			WinnerTicketID:  ticket.TicketID,
		})
	}
}

// announce publishes the winner events and mails the operator. Both are
// best effort: the winner state is already committed.
func (rv *Reveal) announce(log *slog.Logger, lotteryID int64, lotteryName string, ticket *model.Ticket) {
	data := map[string]interface{}{
		"lotteryId":       lotteryID,
		"winnerTicketId":  ticket.TicketID,
		"winnerPublicKey": ticket.BuyerPublicKey,
	}

	if err := rv.publisher.Publish(event.NewMessage(event.ChannelWinners, event.EventWinnerRevealed, data)); err != nil {
		log.Error("failed to publish winner-revealed event", sl.Err(err))
	}

	if err := rv.publisher.Publish(event.NewMessage(
		event.LotteryChannel(lotteryID), event.EventWinnerRevealed, data)); err != nil {
		log.Error("failed to publish winner-revealed event", sl.Err(err))
	}

	if rv.mailer == nil || rv.notifyTo == "" {
		return
	}

	go func() {
		subject := fmt.Sprintf("Winner revealed: %s", lotteryName)
		body := fmt.Sprintf("Lottery %q (id %d) has a winner.\nWinning ticket: %s",
			lotteryName, lotteryID, ticket.TicketID)

		if err := rv.mailer.Send(rv.notifyTo, subject, body); err != nil {
			log.Error("failed to send winner notification mail", sl.Err(err))
		}
	}()
}

func categorize(err error) (resp.Category, string) {
	var verifyErr *chain.VerifyError

	if !errors.As(err, &verifyErr) {
		return resp.CategoryInternal, "internal server error"
	}

	switch verifyErr.Kind {
	case chain.KindNotFound:
		return resp.CategoryInvalidInput, "Invalid transaction signature"
	case chain.KindWrongInstruction:
		return resp.CategoryInvalidInput, "Instruction not found in transaction"
	case chain.KindMalformedLog:
		return resp.CategoryInvalidInput, "Invalid ticket ID format in logs"
	case chain.KindUpstream:
		return resp.CategoryUpstreamUnavailable, "chain verification unavailable"
	default:
		return resp.CategoryInvalidInput, verifyErr.Message
	}
}

func (rv *Reveal) decodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, req interface{}) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("missing required fields", resp.CategoryInvalidInput))

		return false
	}

	if err := rv.validator.Struct(req); err != nil {
		validateErr := err.(validator.ValidationErrors)

		log.Error("invalid request", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(validateErr))

		return false
	}

	return true
}

func (rv *Reveal) requireLottery(w http.ResponseWriter, r *http.Request, log *slog.Logger, id int64) bool {
	exists, err := rv.store.ExistsLottery(id)
	if err != nil {
		log.Error("failed to check lottery", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

		return false
	}

	if !exists {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, resp.Error("Lottery not found", resp.CategoryNotFound))

		return false
	}

	return true
}
