// @title Secret Santa API
// @version 1.0
// @description Generates Secret Santa matches, emails every giver and lets organizers fetch the draw.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Organizer ID token as "Bearer <token>"
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	_ "github.com/lib/pq"

	"secretsanta/config"
	"secretsanta/internal/adapters/auth"
	"secretsanta/internal/adapters/email"
	delivery "secretsanta/internal/delivery/http"
	"secretsanta/internal/delivery/http/controllers"
	"secretsanta/internal/delivery/http/middleware"
	"secretsanta/internal/domain"
	"secretsanta/internal/metrics"
	"secretsanta/internal/repository/dynamodb"
	"secretsanta/internal/repository/memory"
	"secretsanta/internal/repository/postgres"
	rediscache "secretsanta/internal/repository/redis"
	"secretsanta/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("starting application",
		"env", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.StoreDriver,
		"email_provider", cfg.Email.Provider,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("application stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("application stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := newSessionRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	if purger, ok := repo.(domain.ExpiredSessionPurger); ok {
		go services.RunJanitor(ctx, logger, purger, cfg.JanitorInterval)
	}

	mailer, err := email.NewMailer(ctx, logger, email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.AWS.Region,
			AccessKeyID:        cfg.AWS.AccessKeyID,
			SecretAccessKey:    cfg.AWS.SecretAccessKey,
			InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
		},
	})
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}

	m := metrics.New()
	notifier := services.NewNotificationService(logger, mailer, renderer, m, cfg.Matching.NotifyConcurrency, cfg.RequestTimeout)
	matcher := services.NewMatcher(nil)
	sessionService := services.NewSessionService(logger, matcher, repo, notifier, m, cfg.Matching.DefaultBudget, cfg.RequestTimeout)
	sessionController := controllers.NewSessionController(logger, sessionService)

	verifier, err := newTokenVerifier(cfg.Auth, logger)
	if err != nil {
		return err
	}

	router := delivery.NewRouter(sessionController, m, verifier, logger)
	handler := middleware.CORS(cfg.CORSAllowedOrigins,
		middleware.LoggingMiddleware(logger,
			middleware.Metrics(m, router)))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("stopping application")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSessionRepository builds the backend selected by STORE_DRIVER. The
// returned func releases the underlying client.
func newSessionRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.SessionRepository, func(), error) {
	noop := func() {}

	switch cfg.StoreDriver {
	case "dynamodb":
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWS.Region)}
		if cfg.AWS.AccessKeyID != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, noop, fmt.Errorf("load aws config: %w", err)
		}
		logger.Info("using dynamodb session store", "table", cfg.AWS.DynamoDBTable, "region", awsCfg.Region)
		return dynamodb.NewSessionRepository(awsdynamodb.NewFromConfig(awsCfg), cfg.AWS.DynamoDBTable), noop, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("using postgres session store")
		return postgres.NewSessionRepository(db), func() { _ = db.Close() }, nil

	case "redis":
		client, err := rediscache.Connect(ctx, rediscache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("using redis session store", "addr", cfg.Redis.Addr)
		return rediscache.NewSessionRepository(logger, client), func() { _ = client.Close() }, nil

	default:
		logger.Warn("using in-memory session store; sessions are lost on restart")
		return memory.NewSessionRepository(), noop, nil
	}
}

// newTokenVerifier returns nil when no key is configured, leaving the organizer routes open.
func newTokenVerifier(cfg config.AuthConfig, logger *slog.Logger) (domain.TokenVerifier, error) {
	vc := auth.VerifierConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   cfg.JWTLeeway,
	}
	if cfg.JWTPublicKeyFile != "" {
		pemBytes, err := os.ReadFile(cfg.JWTPublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read token public key: %w", err)
		}
		vc.PublicKeyPEM = pemBytes
	}
	if !vc.Enabled() {
		logger.Warn("organizer token verification disabled; set AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY_FILE to enable it")
		return nil, nil
	}
	verifier, err := auth.NewJWTVerifier(vc)
	if err != nil {
		return nil, fmt.Errorf("create token verifier: %w", err)
	}
	logger.Info("organizer token verification enabled", "issuer", cfg.JWTIssuer, "audience", cfg.JWTAudience)
	return verifier, nil
}
