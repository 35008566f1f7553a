package lifecycle

import (
	"net/http"
	"strconv"

	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slog"
)

type ConfigRequest struct {
	LotteryID int64  `json:"lotteryId" validate:"required"`
	Signature string `json:"initializeConfigSignature" validate:"required"`
}

type InitializeRequest struct {
	LotteryID int64  `json:"lotteryId" validate:"required"`
	Signature string `json:"initializeLotterySignature" validate:"required"`
}

type RandomnessRequest struct {
	LotteryID          int64  `json:"lotteryId" validate:"required"`
	Signature          string `json:"createRandomnessSignature" validate:"required"`
	SbRandomnessPubKey string `json:"sbRandomnessPubKey" validate:"required"`
	SbQueuePubKey      string `json:"sbQueuePubKey" validate:"required"`
}

type CommitRequest struct {
	LotteryID int64  `json:"lotteryId" validate:"required"`
	Signature string `json:"commitRandomnessSignature" validate:"required"`
}

type KeysResponse struct {
	resp.Response
	RandomnessKeys *model.RandomnessKeys `json:"randomnessKeys,omitempty"`
}

// Store is the slice of a lottery repository the on-chain lifecycle needs.
// Both variants satisfy it, so the same handler serves both route trees.
type Store interface {
	ExistsLottery(id int64) (bool, error)
	GetRandomnessKeys(id int64) (*model.RandomnessKeys, error)
	SetInitializeConfigSignature(id int64, signature string) (bool, error)
	SetInitializeLotterySignature(id int64, signature string) (bool, error)
	SetRandomness(id int64, signature, sbRandomnessPubKey, sbQueuePubKey string) (bool, error)
	SetCommitRandomnessSignature(id int64, signature string) (bool, error)
}

// Lifecycle records each irreversible on-chain setup step exactly once.
// A second report of any step is a conflict, never an overwrite.
type Lifecycle struct {
	log       *slog.Logger
	validator *validator.Validate
	store     Store
}

func NewLifecycle(log *slog.Logger, store Store) *Lifecycle {
	return &Lifecycle{
		log:       log,
		validator: validator.New(),
		store:     store,
	}
}

func (l *Lifecycle) InitializeConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.lifecycle.InitializeConfig"

		var req ConfigRequest

		l.writeOnce(w, r, op, &req, func() (int64, string) { return req.LotteryID, req.Signature },
			l.store.SetInitializeConfigSignature,
			"Config initialized successfully", "Config already initialized")
	}
}

func (l *Lifecycle) InitializeLottery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.lifecycle.InitializeLottery"

		var req InitializeRequest

		l.writeOnce(w, r, op, &req, func() (int64, string) { return req.LotteryID, req.Signature },
			l.store.SetInitializeLotterySignature,
			"Lottery initialized successfully", "Lottery already initialized")
	}
}

func (l *Lifecycle) CreateRandomness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.lifecycle.CreateRandomness"

		log := l.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req RandomnessRequest

		if !l.decodeAndValidate(w, r, log, &req) {
			return
		}

		if !l.requireLottery(w, r, log, req.LotteryID) {
			return
		}

		updated, err := l.store.SetRandomness(req.LotteryID, req.Signature, req.SbRandomnessPubKey, req.SbQueuePubKey)
		if err != nil {
			log.Error("failed to set randomness", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if !updated {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Randomness already created", resp.CategoryConflict))

			return
		}

		log.Info("randomness created", slog.Int64("lottery_id", req.LotteryID))

		render.JSON(w, r, resp.OK("Randomness created successfully"))
	}
}

func (l *Lifecycle) CommitRandomness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.lifecycle.CommitRandomness"

		var req CommitRequest

		l.writeOnce(w, r, op, &req, func() (int64, string) { return req.LotteryID, req.Signature },
			l.store.SetCommitRandomnessSignature,
			"Randomness committed successfully", "Randomness already committed")
	}
}

func (l *Lifecycle) RandomnessKeys() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lottery.lifecycle.RandomnessKeys"

		log := l.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "lotteryId"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid lottery id", resp.CategoryInvalidInput))

			return
		}

		keys, err := l.store.GetRandomnessKeys(id)
		if err != nil {
			log.Error("failed to fetch randomness keys", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if keys == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Lottery not found", resp.CategoryNotFound))

			return
		}

		if keys.SbRandomnessPubKey == nil || keys.SbQueuePubKey == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Randomness keys not found", resp.CategoryNotFound))

			return
		}

		render.JSON(w, r, KeysResponse{
			Response:       resp.OK("Randomness keys fetched successfully"),
			RandomnessKeys: keys,
		})
	}
}

// writeOnce is the shared shape of the single-signature lifecycle steps:
// decode, check the lottery exists, attempt the guarded update, and report
// a conflict when the column was already set.
func (l *Lifecycle) writeOnce(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	req interface{},
	args func() (int64, string),
	set func(id int64, signature string) (bool, error),
	okMsg, conflictMsg string) {
	log := l.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if !l.decodeAndValidate(w, r, log, req) {
		return
	}

	lotteryID, signature := args()

	if !l.requireLottery(w, r, log, lotteryID) {
		return
	}

	updated, err := set(lotteryID, signature)
	if err != nil {
		log.Error("failed to record signature", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

		return
	}

	if !updated {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error(conflictMsg, resp.CategoryConflict))

		return
	}

	log.Info("lifecycle step recorded", slog.Int64("lottery_id", lotteryID))

	render.JSON(w, r, resp.OK(okMsg))
}

func (l *Lifecycle) decodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, req interface{}) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("missing required fields", resp.CategoryInvalidInput))

		return false
	}

	if err := l.validator.Struct(req); err != nil {
		validateErr := err.(validator.ValidationErrors)

		log.Error("invalid request", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(validateErr))

		return false
	}

	return true
}

func (l *Lifecycle) requireLottery(w http.ResponseWriter, r *http.Request, log *slog.Logger, id int64) bool {
	exists, err := l.store.ExistsLottery(id)
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
