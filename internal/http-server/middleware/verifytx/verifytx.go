package verifytx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Shobhit2205/winisol-server/internal/chain"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/go-chi/render"
	"golang.org/x/exp/slog"
)

type contextKey string

const ticketIDContextKey contextKey = "verified_ticket_id"

type request struct {
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
	LotteryID int64  `json:"lotteryId"`
}

// Middleware verifies the on-chain transaction reported in the request body
// before the state machine sees it. On success the reconstructed ticket id
// is attached to the request context; the body is restored for the handler.
type Middleware struct {
	log      *slog.Logger
	verifier *chain.Verifier
	timeout  time.Duration
}

func New(log *slog.Logger, verifier *chain.Verifier, timeout time.Duration) *Middleware {
	return &Middleware{
		log:      log,
		verifier: verifier,
		timeout:  timeout,
	}
}

func (m *Middleware) Verify(instruction string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.verifytx.Verify"

			log := m.log.With(slog.String("op", op), slog.String("instruction", instruction))

			body, err := io.ReadAll(r.Body)
			if err != nil {
				log.Error("failed to read request body", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("failed to read request body", resp.CategoryInvalidInput))

				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			var req request

			if err = render.DecodeJSON(bytes.NewReader(body), &req); err != nil {
				log.Error("failed to decode request body", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("failed to decode request body", resp.CategoryInvalidInput))

				return
			}

			if req.Signature == "" || req.PublicKey == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("missing required fields", resp.CategoryInvalidInput))

				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
			defer cancel()

			fact, err := m.verifier.Verify(ctx, req.Signature, instruction, req.PublicKey, req.LotteryID)
			if err != nil {
				category, message := categorize(err)

				log.Error("transaction verification failed", sl.Err(err))

				render.Status(r, resp.Status(category))
				render.JSON(w, r, resp.Error(message, category))

				return
			}

			log.Info("transaction verified", sl.String("ticket_id", fact.TicketID()))

			next.ServeHTTP(w, r.WithContext(WithTicketID(r.Context(), fact.TicketID())))
		}

		return http.HandlerFunc(fn)
	}
}

func categorize(err error) (resp.Category, string) {
	var verr *chain.VerifyError

	if !errors.As(err, &verr) {
		return resp.CategoryInternal, "internal server error"
	}

	switch verr.Kind {
	case chain.KindNotFound:
		return resp.CategoryNotFound, verr.Message
	case chain.KindSignerMismatch:
		return resp.CategoryForbidden, verr.Message
	case chain.KindUpstream:
		return resp.CategoryUpstreamUnavailable, verr.Message
	default:
		return resp.CategoryInvalidInput, verr.Message
	}
}

// WithTicketID attaches a verified ticket id to the context.
func WithTicketID(ctx context.Context, ticketID string) context.Context {
	return context.WithValue(ctx, ticketIDContextKey, ticketID)
}

// TicketIDFromContext returns the identifier the verifier extracted, empty
// when the route was not behind the verification middleware.
func TicketIDFromContext(ctx context.Context) string {
	ticketID, _ := ctx.Value(ticketIDContextKey).(string)

	return ticketID
}
