package mail

import (
	"fmt"
	"net/http"

	"github.com/Shobhit2205/winisol-server/internal/config"
	resp "github.com/Shobhit2205/winisol-server/internal/lib/api/response"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slog"
	gomail "gopkg.in/gomail.v2"
)

// Sender is the fire-and-forget notification edge. Failures are surfaced to
// the caller but never retried.
type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	cfg config.Mail
}

func NewSMTPSender(cfg config.Mail) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	const op = "handlers.auth.mail.Send"

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	dialer := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password)

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

type Request struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required"`
}

// Mail relays the contact form to the operator address.
type Mail struct {
	log       *slog.Logger
	validator *validator.Validate
	sender    Sender
	receiver  string
}

func NewMail(log *slog.Logger, sender Sender, receiver string) *Mail {
	return &Mail{
		log:       log,
		validator: validator.New(),
		sender:    sender,
		receiver:  receiver,
	}
}

func (m *Mail) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.auth.mail.New"

		log := m.log.With(
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

		if err := m.validator.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		subject := fmt.Sprintf("New Contact Form Submission from %s", req.Name)
		body := fmt.Sprintf("You have received a new message from %s (%s):\n\n%s", req.Name, req.Email, req.Message)

		if err := m.sender.Send(m.receiver, subject, body); err != nil {
			log.Error("failed to send email", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("internal server error", resp.CategoryInternal))

			return
		}

		log.Info("email sent")

		render.JSON(w, r, resp.OK("Email sent successfully"))
	}
}
