package nonce

import (
	"net/http"
	"time"

	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/Shobhit2205/winisol-server/internal/lib/random"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slog"
)

const nonceByteSize = 16

type Request struct {
	PublicKey string `json:"publicKey" validate:"required"`
}

type Response struct {
	resp.Response
	Nonce     string    `json:"nonce,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

type NonceUpserter interface {
	UpsertNonce(publicKey, nonce string, expiresAt time.Time) error
}

// Nonce issues the login challenge. Only the configured authority key may
// request one; each request overwrites the previous challenge.
type Nonce struct {
	log            *slog.Logger
	validator      *validator.Validate
	nonceRep       NonceUpserter
	adminPublicKey string
	ttl            time.Duration
}

func NewNonce(log *slog.Logger, nonceRep NonceUpserter, adminPublicKey string, ttl time.Duration) *Nonce {
	return &Nonce{
		log:            log,
		validator:      validator.New(),
		nonceRep:       nonceRep,
		adminPublicKey: adminPublicKey,
		ttl:            ttl,
	}
}

func (n *Nonce) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.auth.nonce.New"

		log := n.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("public key required", resp.CategoryInvalidInput))

			return
		}

		if err := n.validator.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		if req.PublicKey != n.adminPublicKey {
			log.Info("nonce requested by non-authority key")

			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("unauthorized", resp.CategoryForbidden))

			return
		}

		value, err := random.NewHexString(nonceByteSize)
		if err != nil {
			log.Error("failed to generate nonce", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		expiresAt := time.Now().Add(n.ttl)

		if err = n.nonceRep.UpsertNonce(req.PublicKey, value, expiresAt); err != nil {
			log.Error("failed to store nonce", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		log.Info("nonce issued", slog.Time("expires_at", expiresAt))

		render.JSON(w, r, Response{
			Response:  resp.OK(""),
			Nonce:     value,
			ExpiresAt: expiresAt,
		})
	}
}
