package ticket

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/event"
	"github.com/Shobhit2205/winisol-server/internal/http-server/middleware/verifytx"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"golang.org/x/exp/slog"
)

// mysqlDuplicateEntry is the server error for a violated unique key, which
// here means a replayed purchase signature racing past the pre-check.
const mysqlDuplicateEntry = 1062

type Request struct {
	LotteryID int64  `json:"lotteryId" validate:"required"`
	PublicKey string `json:"publicKey" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type Response struct {
	resp.Response
	Ticket *model.Ticket `json:"ticket,omitempty"`
}

type SaleRecorder interface {
	ExistsLottery(id int64) (bool, error)
	RecordTicketSale(tx *sql.Tx, id int64) error
}

type TicketStore interface {
	SaveTicket(tx *sql.Tx, ticket model.Ticket) (int64, error)
	FindTicketBySignature(signature string) (*model.Ticket, error)
}

type TransactionStarter interface {
	StartTransaction() (*sql.Tx, error)
	RollbackTransaction(tx *sql.Tx) error
	CommitTransaction(tx *sql.Tx) error
}

// Purchase records a verified on-chain ticket buy. The chain verification
// middleware runs first and leaves the reconstructed ticket id in the
// request context; this handler only persists the fact. The ticket insert
// and the pot increment commit together or not at all.
type Purchase struct {
	log       *slog.Logger
	validator *validator.Validate
	lotteries SaleRecorder
	tickets   TicketStore
	txRep     TransactionStarter
	publisher event.Publisher
}

func NewPurchase(
	log *slog.Logger,
	lotteries SaleRecorder,
	tickets TicketStore,
	txRep TransactionStarter,
	publisher event.Publisher) *Purchase {
	return &Purchase{
		log:       log,
		validator: validator.New(),
		lotteries: lotteries,
		tickets:   tickets,
		txRep:     txRep,
		publisher: publisher,
	}
}

func (p *Purchase) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.ticket.New"

		log := p.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing required fields", resp.CategoryInvalidInput))

			return
		}

		if err := p.validator.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ticketID := verifytx.TicketIDFromContext(r.Context())
		if ticketID == "" {
			log.Error("no verified ticket id in context")

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		exists, err := p.lotteries.ExistsLottery(req.LotteryID)
		if err != nil {
			log.Error("failed to check lottery", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if !exists {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Lottery not found", resp.CategoryNotFound))

			return
		}

		existing, err := p.tickets.FindTicketBySignature(req.Signature)
		if err != nil {
			log.Error("failed to check ticket signature", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if existing != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Ticket signature already used", resp.CategoryConflict))

			return
		}

		ticket := model.Ticket{
			LotteryID:       req.LotteryID,
			BuyerPublicKey:  req.PublicKey,
			TicketSignature: req.Signature,
			TicketID:        ticketID,
		}

		tx, err := p.txRep.StartTransaction()
		if err != nil {
			log.Error("failed to start transaction", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		id, err := p.tickets.SaveTicket(tx, ticket)
		if err != nil {
			if rbErr := p.txRep.RollbackTransaction(tx); rbErr != nil {
				log.Error("failed to rollback transaction", sl.Err(rbErr))
			}

			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Ticket signature already used", resp.CategoryConflict))

				return
			}

			log.Error("failed to save ticket", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if err = p.lotteries.RecordTicketSale(tx, req.LotteryID); err != nil {
			if rbErr := p.txRep.RollbackTransaction(tx); rbErr != nil {
				log.Error("failed to rollback transaction", sl.Err(rbErr))
			}

			if errors.Is(err, sql.ErrNoRows) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("lottery is not open for ticket sales", resp.CategoryConflict))

				return
			}

			log.Error("failed to record ticket sale", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if err = p.txRep.CommitTransaction(tx); err != nil {
			log.Error("failed to commit transaction", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		ticket.ID = id

		log.Info("ticket purchased",
			slog.Int64("lottery_id", req.LotteryID),
			slog.String("ticket_id", ticketID))

		if err = p.publisher.Publish(event.NewMessage(
			event.LotteryChannel(req.LotteryID),
			event.EventTicketPurchased,
			map[string]interface{}{
				"lotteryId": req.LotteryID,
				"ticketId":  ticketID,
			},
		)); err != nil {
			log.Error("failed to publish ticket-purchased event", sl.Err(err))
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK("Ticket purchased successfully"),
			Ticket:   &ticket,
		})
	}
}
