package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/redis/go-redis/v9"

	"apao/config"
	"apao/internal/adapters/auth"
	"apao/internal/adapters/email"
	"apao/internal/adapters/notify"
	delivery "apao/internal/delivery/http"
	"apao/internal/delivery/http/controllers"
	"apao/internal/delivery/http/middleware"
	"apao/internal/domain"
	"apao/internal/repository/sqldb"
	"apao/internal/services"
	"apao/internal/store"
)

// @title APAO API
// @version 1.0
// @description Sports events feed, comments, likes and direct messages.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	logger := config.NewLogger(os.Getenv("GO_ENV"), os.Getenv("LOG_LEVEL"), os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sqldb.Open(ctx, cfg.DBDriver, cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	if err := sqldb.Migrate(ctx, db); err != nil {
		logger.Error("migrate database", "err", err)
		os.Exit(1)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("parse REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opts)
	}
	notifier := notify.NewNotifier(rdb, logger)

	storeOpts := []store.Option{store.WithNotifier(notifier)}
	if cfg.PasswordHashing == config.PasswordHashingBcrypt {
		storeOpts = append(storeOpts, store.WithHasher(auth.NewBcryptHasher(0)))
	}
	st := store.New(store.Repositories{
		Users:    sqldb.NewUserRepository(db),
		Sports:   sqldb.NewFavoriteSportRepository(db),
		Events:   sqldb.NewEventRepository(db),
		Likes:    sqldb.NewLikeRepository(db),
		Comments: sqldb.NewCommentRepository(db),
		Messages: sqldb.NewMessageRepository(db),
	}, logger, storeOpts...)
	if err := st.Load(ctx); err != nil {
		logger.Error("load store", "err", err)
		os.Exit(1)
	}
	if err := notifier.StartMessageSubscriber(ctx, func(ctx context.Context, m domain.Message) {
		st.ReceiveMessage(ctx, m)
	}); err != nil {
		logger.Warn("message subscriber not started", "err", err)
	}
	if err := notifier.StartEventSubscriber(ctx, func(ctx context.Context, c notify.EventChange) {
		st.ApplyEventChange(ctx, c.Kind, c.EventID)
	}); err != nil {
		logger.Warn("event subscriber not started", "err", err)
	}

	mailer := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	session := services.NewSessionService(st, logger, services.WithEmailService(emailService))

	// An HTTP client learns about its registration from the 201 response, so
	// the one-shot notifications are only logged here. Draining keeps the
	// buffer from filling and dropping them.
	go func() {
		for u := range session.Registrations() {
			logger.Info("registration completed", "user_id", u.ID, "email", u.Email)
		}
	}()

	requireSession := middleware.RequireSession(
		auth.NewJWTVerifier(cfg.JWTSecret),
		func() *domain.User { return st.CurrentUser().Value() },
		logger,
	)
	mux := delivery.NewRouter(
		controllers.NewAuthController(logger, session, auth.NewJWTIssuer(cfg.JWTSecret), cfg.JWTExpiry),
		controllers.NewEventController(logger, session),
		controllers.NewMessageController(logger, session),
		requireSession,
	)
	handler := middleware.LoggingMiddleware(logger, middleware.CORS(cfg.CORSAllowedOrigins, mux))

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.Environment, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "err", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				// ends event streams and the message subscriber
				cancel()
				return srv.Shutdown(ctx)
			},
			"redis": func(ctx context.Context) error {
				if rdb == nil {
					return nil
				}
				return rdb.Close()
			},
		},
	)
	exitCode := <-wait
	if err := db.Close(); err != nil {
		logger.Error("close database", "err", err)
	}
	logger.Info("shutdown complete", "exit_code", exitCode)
	os.Exit(exitCode)
}
