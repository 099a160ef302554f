package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fitcoach/api-server-go/internal/chat"
	"github.com/fitcoach/api-server-go/internal/completion"
	"github.com/fitcoach/api-server-go/internal/config"
	"github.com/fitcoach/api-server-go/internal/database"
	"github.com/fitcoach/api-server-go/internal/handler"
	"github.com/fitcoach/api-server-go/internal/jobs"
	"github.com/fitcoach/api-server-go/internal/mailer"
	"github.com/fitcoach/api-server-go/internal/middleware"
	"github.com/fitcoach/api-server-go/internal/redis"
	"github.com/fitcoach/api-server-go/internal/repository"
	"github.com/fitcoach/api-server-go/internal/service"
	"github.com/fitcoach/api-server-go/internal/session"
	"github.com/fitcoach/api-server-go/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	codeRepo := repository.NewVerificationCodeRepository(db.DB)
	workoutRepo := repository.NewWorkoutRepository(db.DB)

	cipher, err := token.NewIdentityCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid encryption key")
	}
	issuer := token.NewIssuer(cfg.JWTSecret, cipher, cfg.TokenTTL())

	smtpMailer := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		Username: cfg.EmailUsername,
		Password: cfg.EmailPassword,
		From:     cfg.EmailFrom,
	})

	completer := completion.NewClient(completion.Config{
		APIKey:  cfg.CompletionAPIKey,
		BaseURL: cfg.CompletionBaseURL,
		Model:   cfg.CompletionModel,
	})

	tracker := session.NewTracker(cfg.SessionIdleTimeout())
	chatStore := chat.NewStore(completer, cfg.ChatLifetime(), config.TranscriptSizeThreshold)

	authService := service.NewAuthService(db, userRepo, codeRepo, smtpMailer, issuer, cfg.VerificationTTL())
	userService := service.NewUserService(db, userRepo, workoutRepo, completer)
	chatService := service.NewChatService(userRepo, workoutRepo, chatStore)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	authGate := middleware.NewAuthGate(issuer)
	sessionActivity := middleware.NewSessionActivity(tracker)
	bodyLimit := middleware.NewBodyLimit(0)

	authLimit := service.PerMinute(config.AuthRateLimitPerMin)
	registerLimit := middleware.NewRateLimit(rateLimiter, "register", authLimit)
	verifyLimit := middleware.NewRateLimit(rateLimiter, "verify", authLimit)
	resendLimit := middleware.NewRateLimit(rateLimiter, "resend-code", authLimit)
	loginLimit := middleware.NewRateLimit(rateLimiter, "token", authLimit)
	chatLimit := middleware.NewRateLimit(rateLimiter, "chat", authLimit)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	chatHandler := handler.NewChatHandler(chatService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimit.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Group(func(r chi.Router) {
		r.With(registerLimit.Handler).Post("/register", authHandler.Register)
		r.With(verifyLimit.Handler).Post("/verify", authHandler.Verify)
		r.With(resendLimit.Handler).Post("/resend-code", authHandler.ResendCode)
		r.With(loginLimit.Handler).Post("/token", authHandler.Token)
	})

	r.Group(func(r chi.Router) {
		r.Use(authGate.Handler)
		r.Use(sessionActivity.Handler)
		r.Post("/update-personal-details", userHandler.UpdatePersonalDetails)
		r.Post("/save-workout", userHandler.SaveWorkout)
		r.With(chatLimit.Handler).Post("/chat", chatHandler.Chat)
	})

	cleanupJob := jobs.NewCleanupJob(codeRepo, tracker, chatStore, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
