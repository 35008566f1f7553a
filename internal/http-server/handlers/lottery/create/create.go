package create

import (
	"net/http"

	"github.com/Shobhit2205/winisol-server/internal/config"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"
)

type StandardRequest struct {
	LotteryName   string  `json:"lotteryName" validate:"required"`
	LotterySymbol string  `json:"lotterySymbol" validate:"required"`
	LotteryURI    string  `json:"lotteryURI" validate:"required"`
	LotteryImage  string  `json:"lotteryImage" validate:"required"`
	StartTime     int64   `json:"startTime" validate:"required"`
	EndTime       int64   `json:"endTime" validate:"required"`
	Price         float64 `json:"price" validate:"required,gt=0"`
}

type LimitedRequest struct {
	LotteryName   string  `json:"lotteryName" validate:"required"`
	LotterySymbol string  `json:"lotterySymbol" validate:"required"`
	LotteryURI    string  `json:"lotteryURI" validate:"required"`
	LotteryImage  string  `json:"lotteryImage" validate:"required"`
	TotalTickets  int64   `json:"totalTickets" validate:"required,gt=0"`
	Price         float64 `json:"price" validate:"required,gt=0"`
}

type StandardResponse struct {
	resp.Response
	Lottery *model.Lottery `json:"lottery,omitempty"`
}

type LimitedResponse struct {
	resp.Response
	Lottery *model.LimitedLottery `json:"lottery,omitempty"`
}

type StandardSaver interface {
	SaveLottery(lottery model.Lottery) (int64, error)
}

type LimitedSaver interface {
	SaveLottery(lottery model.LimitedLottery) (int64, error)
}

// Lottery creates either variant. A standard lottery sells from StartTime to
// EndTime and accumulates its pot per sale; a limited lottery has a fixed
// ticket cap and its full pot is computed here, at creation.
type Lottery struct {
	log       *slog.Logger
	validator *validator.Validate
	standard  StandardSaver
	limited   LimitedSaver
}

func NewLottery(log *slog.Logger, standard StandardSaver, limited LimitedSaver) *Lottery {
	return &Lottery{
		log:       log,
		validator: validator.New(),
		standard:  standard,
		limited:   limited,
	}
}

func (l *Lottery) Standard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.create.Standard"

		log := l.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req StandardRequest

		if !decodeAndValidate(w, r, log, l.validator, &req) {
			return
		}

		if req.StartTime >= req.EndTime {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("start time cannot be greater than end time", resp.CategoryInvalidInput))

			return
		}

		lottery := model.Lottery{
			LotteryName:   req.LotteryName,
			LotterySymbol: req.LotterySymbol,
			LotteryURI:    req.LotteryURI,
			Image:         req.LotteryImage,
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			Price:         decimal.NewFromFloat(req.Price),
			PotAmount:     decimal.Zero,
			Status:        config.StatusActive,
		}

		id, err := l.standard.SaveLottery(lottery)
		if err != nil {
			log.Error("failed to save lottery", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		lottery.ID = id

		log.Info("lottery created", slog.Int64("lottery_id", id))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, StandardResponse{
			Response: resp.OK("Lottery created successfully"),
			Lottery:  &lottery,
		})
	}
}

func (l *Lottery) Limited() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.create.Limited"

		log := l.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req LimitedRequest

		if !decodeAndValidate(w, r, log, l.validator, &req) {
			return
		}

		price := decimal.NewFromFloat(req.Price)

		lottery := model.LimitedLottery{
			LotteryName:    req.LotteryName,
			LotterySymbol:  req.LotterySymbol,
			LotteryURI:     req.LotteryURI,
			Image:          req.LotteryImage,
			Price:          price,
			TotalPotAmount: price.Mul(decimal.NewFromInt(req.TotalTickets)),
			TotalTickets:   req.TotalTickets,
			Status:         config.StatusActive,
		}

		id, err := l.limited.SaveLottery(lottery)
		if err != nil {
			log.Error("failed to save limited lottery", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		lottery.ID = id

		log.Info("limited lottery created", slog.Int64("lottery_id", id))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, LimitedResponse{
			Response: resp.OK("Limited lottery created successfully"),
			Lottery:  &lottery,
		})
	}
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, v *validator.Validate, req interface{}) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("missing required fields", resp.CategoryInvalidInput))

		return false
	}

	if err := v.Struct(req); err != nil {
		validateErr := err.(validator.ValidationErrors)

		log.Error("invalid request", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(validateErr))

		return false
	}

	return true
}
