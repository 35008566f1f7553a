package login

import (
	"crypto/ed25519"
	"net/http"
	"time"

	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
	mwauth "github.com/Shobhit2205/winisol-server/internal/http-server/middleware/auth"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/exp/slog"
)

type Request struct {
	PublicKey string `json:"publicKey" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type Response struct {
	resp.Response
	Token string `json:"token,omitempty"`
}

type NonceConsumer interface {
	FindNonceByPublicKey(publicKey string) (*model.Nonce, error)
	DeleteNonce(publicKey string) error
}

// Login completes the challenge-response exchange: the authority signs the
// issued nonce with its wallet key and receives a bearer credential. The
// nonce is consumed on success or expiry.
type Login struct {
	log            *slog.Logger
	validator      *validator.Validate
	nonceRep       NonceConsumer
	adminPublicKey string
	jwtSecret      string
	tokenTTL       time.Duration
}

func NewLogin(log *slog.Logger, nonceRep NonceConsumer, adminPublicKey, jwtSecret string, tokenTTL time.Duration) *Login {
	return &Login{
		log:            log,
		validator:      validator.New(),
		nonceRep:       nonceRep,
		adminPublicKey: adminPublicKey,
		jwtSecret:      jwtSecret,
		tokenTTL:       tokenTTL,
	}
}

func (l *Login) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.auth.login.New"

		log := l.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing data", resp.CategoryInvalidInput))

			return
		}

		if err := l.validator.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		if req.PublicKey != l.adminPublicKey {
			log.Info("login attempted by non-authority key")

			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, resp.Error("unauthorized", resp.CategoryForbidden))

			return
		}

		nonceEntry, err := l.nonceRep.FindNonceByPublicKey(req.PublicKey)
		if err != nil {
			log.Error("failed to load nonce", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		if nonceEntry == nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("nonce expired or invalid", resp.CategoryConflict))

			return
		}

		if nonceEntry.Expired(time.Now()) {
			if err = l.nonceRep.DeleteNonce(req.PublicKey); err != nil {
				log.Error("failed to delete expired nonce", sl.Err(err))
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("nonce expired", resp.CategoryConflict))

			return
		}

		if !l.verifySignature(nonceEntry.Nonce, req.PublicKey, req.Signature) {
			log.Info("invalid nonce signature")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("invalid signature", resp.CategoryUnauthorized))

			return
		}

		if err = l.nonceRep.DeleteNonce(req.PublicKey); err != nil {
			log.Error("failed to consume nonce", sl.Err(err))
		}

		token, err := l.issueToken(req.PublicKey)
		if err != nil {
			log.Error("failed to sign token", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		log.Info("authority authenticated")

		render.JSON(w, r, Response{
			Response: resp.OK("Admin authenticated"),
			Token:    token,
		})
	}
}

func (l *Login) verifySignature(nonceValue, publicKey, signature string) bool {
	pubkey, err := solana.PublicKeyFromBase58(publicKey)
	if err != nil {
		return false
	}

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(pubkey[:]), []byte(nonceValue), sig[:])
}

func (l *Login) issueToken(publicKey string) (string, error) {
	claims := mwauth.Claims{
		PublicKey: publicKey,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(l.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(l.jwtSecret))
}
