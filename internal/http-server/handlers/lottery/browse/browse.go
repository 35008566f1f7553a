package browse

import (
	"net/http"
	"strconv"

	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/exp/slog"
)

type StandardLister interface {
	FindActiveLotteries() ([]model.Lottery, error)
	GetLotteryByID(id int64) (*model.Lottery, error)
}

type LimitedLister interface {
	FindActiveLotteries() ([]model.LimitedLottery, error)
}

type TicketIDLister interface {
	FindTicketIDsByLottery(lotteryID int64) ([]string, error)
}

type StandardListResponse struct {
	resp.Response
	Lotteries []model.Lottery `json:"lotteries"`
}

type StandardResponse struct {
	resp.Response
	Lottery *model.Lottery `json:"lottery"`
}

// LimitedListing carries the bought ticket ids so the client can render
// which slots are taken.
type LimitedListing struct {
	model.LimitedLottery
	TicketBought []string `json:"ticketBought"`
}

type LimitedListResponse struct {
	resp.Response
	Lotteries []LimitedListing `json:"lotteries"`
}

type Browse struct {
	log            *slog.Logger
	standard       StandardLister
	limited        LimitedLister
	limitedTickets TicketIDLister
}

func NewBrowse(log *slog.Logger, standard StandardLister, limited LimitedLister, limitedTickets TicketIDLister) *Browse {
	return &Browse{
		log:            log,
		standard:       standard,
		limited:        limited,
		limitedTickets: limitedTickets,
	}
}

func (b *Browse) All() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.browse.All"

		log := b.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		lotteries, err := b.standard.FindActiveLotteries()
		if err != nil {
			log.Error("failed to fetch lotteries", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		render.JSON(w, r, StandardListResponse{
			Response:  resp.OK("Lotteries fetched successfully"),
			Lotteries: lotteries,
		})
	}
}

func (b *Browse) Single() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.browse.Single"

		log := b.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid lottery id", resp.CategoryInvalidInput))

			return
		}

		lottery, err := b.standard.GetLotteryByID(id)
		if err != nil {
			log.Error("failed to fetch lottery", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if lottery == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Lottery not found", resp.CategoryNotFound))

			return
		}

		render.JSON(w, r, StandardResponse{
			Response: resp.OK("Lottery fetched successfully"),
			Lottery:  lottery,
		})
	}
}

func (b *Browse) AllLimited() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.browse.AllLimited"

		log := b.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		lotteries, err := b.limited.FindActiveLotteries()
		if err != nil {
			log.Error("failed to fetch limited lotteries", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		listings := make([]LimitedListing, 0, len(lotteries))

		for _, lottery := range lotteries {
			ticketIDs, err := b.limitedTickets.FindTicketIDsByLottery(lottery.ID)
			if err != nil {
				log.Error("failed to fetch ticket ids",
					sl.Err(err),
					slog.Int64("lottery_id", lottery.ID))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

				return
			}

			listings = append(listings, LimitedListing{
				LimitedLottery: lottery,
				TicketBought:   ticketIDs,
			})
		}

		render.JSON(w, r, LimitedListResponse{
			Response:  resp.OK("Limited lotteries fetched successfully"),
			Lotteries: listings,
		})
	}
}
