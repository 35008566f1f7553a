package main

import (
	"database/sql"
	"net/http"
	"os"

	"github.com/Shobhit2205/winisol-server/internal/chain"
	"github.com/Shobhit2205/winisol-server/internal/config"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/auth/login"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/auth/mail"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/auth/nonce"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/event"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/lottery/browse"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/lottery/claim"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/lottery/create"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/lottery/lifecycle"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/lottery/reveal"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/lottery/ticket"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/mysql"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/winner"
	mwauth "github.com/Shobhit2205/winisol-server/internal/http-server/middleware/auth"
	"github.com/Shobhit2205/winisol-server/internal/http-server/middleware/logger"
	"github.com/Shobhit2205/winisol-server/internal/http-server/middleware/verifytx"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/handler/slogpretty"
	"github.com/Shobhit2205/winisol-server/internal/lib/logger/sl"
	"github.com/Shobhit2205/winisol-server/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/websocket"
	"github.com/pusher/pusher-http-go/v5"
	"golang.org/x/exp/slog"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting server...", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	db, err := sql.Open("mysql", cfg.Database.DSN)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	if err = db.Ping(); err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	handler := mysql.New(db)

	lotteryRepo := repository.NewLotteryRepository(*handler)
	limitedRepo := repository.NewLimitedLotteryRepository(*handler)
	ticketRepo := repository.NewTicketRepository(*handler)
	limitedTicketRepo := repository.NewLimitedTicketRepository(*handler)
	nonceRepo := repository.NewNonceRepository(*handler)
	txRepo := repository.NewTransactionRepository(*handler)

	reader := chain.NewRPCReader(cfg.Solana.RPCURL)

	verifier, err := chain.NewVerifier(reader, cfg.Solana.LotteryProgramID)
	if err != nil {
		log.Error("Failed to init transaction verifier", sl.Err(err))
		os.Exit(1)
	}

	oracle := chain.NewOwnershipOracle(cfg.Solana.RPCURL, &http.Client{Timeout: cfg.Solana.RequestTimeout}, log)

	publisher := setupPublisher(log, cfg.Events)

	mailSender := mail.NewSMTPSender(cfg.Mail)

	verifyMw := verifytx.New(log, verifier, cfg.Solana.RequestTimeout)
	authMw := mwauth.New(cfg.Auth.JWTSecret)

	nonceHandler := nonce.NewNonce(log, nonceRepo, cfg.Solana.AdminPublicKey, cfg.Auth.NonceTTL)
	loginHandler := login.NewLogin(log, nonceRepo, cfg.Solana.AdminPublicKey, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	mailHandler := mail.NewMail(log, mailSender, cfg.Mail.ReceiverEmail)

	createHandler := create.NewLottery(log, lotteryRepo, limitedRepo)
	browseHandler := browse.NewBrowse(log, lotteryRepo, limitedRepo, limitedTicketRepo)

	buyStandard := ticket.NewPurchase(log, lotteryRepo, ticketRepo, txRepo, publisher)
	buyLimited := ticket.NewPurchase(log, limitedRepo, limitedTicketRepo, txRepo, publisher)

	lifecycleStandard := lifecycle.NewLifecycle(log, lotteryRepo)
	lifecycleLimited := lifecycle.NewLifecycle(log, limitedRepo)

	revealStandard := reveal.NewReveal(log, verifier, ticketRepo, lotteryRepo,
		publisher, mailSender, cfg.Mail.ReceiverEmail, cfg.Solana.RequestTimeout)
	revealLimited := reveal.NewReveal(log, verifier, limitedTicketRepo, limitedRepo,
		publisher, mailSender, cfg.Mail.ReceiverEmail, cfg.Solana.RequestTimeout)

	claimStandard := claim.NewClaim(log, lotteryRepo, cfg.Solana.AdminPublicKey)
	claimLimited := claim.NewClaim(log, limitedRepo, cfg.Solana.AdminPublicKey)

	winnerHandler := winner.NewWinner(log, lotteryRepo, limitedRepo, oracle, cfg.Solana.RequestTimeout)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/generate-nonce", nonceHandler.New())
		r.Post("/verify-authority", loginHandler.New())
		r.Post("/send-mail", mailHandler.New())
	})

	router.Route("/api/v1/lottery", func(r chi.Router) {
		r.Get("/get-all-lotteries", browseHandler.All())

		r.With(verifyMw.Verify(config.InstructionBuyTickets)).
			Post("/buy-ticket", buyStandard.New())
		r.With(verifyMw.Verify(config.InstructionClaimWinnings)).
			Put("/claim-winnings", claimStandard.Winnings())

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/create-lottery", createHandler.Standard())
			r.Get("/get-single-lottery/{id}", browseHandler.Single())
			r.Post("/initialize-config", lifecycleStandard.InitializeConfig())
			r.Post("/initialize-lottery", lifecycleStandard.InitializeLottery())
			r.Put("/create-randomness", lifecycleStandard.CreateRandomness())
			r.Get("/get-randomness-keys/{lotteryId}", lifecycleStandard.RandomnessKeys())
			r.Put("/commit-randomness", lifecycleStandard.CommitRandomness())
			r.Put("/reveal-winner", revealStandard.New())
			r.Put("/update-winner-if-needed", revealStandard.UpdateIfNeeded())
			r.Put("/authority-transfer", claimStandard.AuthorityTransfer())
			r.Put("/update-lottery-status", claimStandard.Complete())
			r.Delete("/delete-lottery/{id}", claimStandard.Delete())
		})
	})

	router.Route("/api/v1/limited-lottery", func(r chi.Router) {
		r.Get("/get-all-limited-lotteries", browseHandler.AllLimited())

		r.With(verifyMw.Verify(config.InstructionBuyLimitedTickets)).
			Post("/buy-limited-lottery-ticket", buyLimited.New())
		r.With(verifyMw.Verify(config.InstructionClaimLimitedWinnings)).
			Put("/claim-limited-lottery-winnings", claimLimited.Winnings())

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/create-limited-lottery", createHandler.Limited())
			r.Post("/initialize-limited-lottery-config", lifecycleLimited.InitializeConfig())
			r.Post("/initialize-limited-lottery", lifecycleLimited.InitializeLottery())
			r.Put("/create-limited-lottery-randomness", lifecycleLimited.CreateRandomness())
			r.Get("/get-limited-lottery-randomness-keys/{lotteryId}", lifecycleLimited.RandomnessKeys())
			r.Put("/commit-limited-lottery-randomness", lifecycleLimited.CommitRandomness())
			r.Put("/reveal-limited-lottery-winner", revealLimited.New())
			r.Put("/limited-lottery-authority-transfer", claimLimited.AuthorityTransfer())
			r.Put("/update-lottery-status", claimLimited.Complete())
			r.Delete("/delete-lottery/{id}", claimLimited.Delete())
		})
	})

	router.Route("/api/v1/common-lottery", func(r chi.Router) {
		r.Get("/winner-by-public-key/{publicKey}", winnerHandler.ByPublicKey())
		r.Get("/get-all-winners", winnerHandler.All())
	})

	log.Info("Server started", slog.String("address", cfg.HTTPServer.Address))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	if err = srv.ListenAndServe(); err != nil {
		log.Error("Server failed", sl.Err(err))
	}

	log.Error("Server stopped")
}

// setupPublisher picks the event transport: a connection to the local ws
// hub, Pusher Channels, or nothing.
func setupPublisher(log *slog.Logger, cfg config.Events) event.Publisher {
	if cfg.HubURL != "" {
		conn, _, err := websocket.DefaultDialer.Dial(cfg.HubURL, nil)
		if err != nil {
			log.Error("Failed to connect to event hub, events disabled", sl.Err(err))

			return event.NopPublisher{}
		}

		return event.NewHubPublisher(log, conn)
	}

	if cfg.PusherAppID != "" {
		client := &pusher.Client{
			AppID:   cfg.PusherAppID,
			Key:     cfg.PusherKey,
			Secret:  cfg.PusherSecret,
			Cluster: cfg.PusherCluster,
		}

		return event.NewPusherPublisher(log, client)
	}

	log.Info("no event transport configured, events disabled")

	return event.NopPublisher{}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlogLogger()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func setupPrettySlogLogger() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
