package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "mailsync-backend/cmd/api"
	accountdomain "mailsync-backend/internal/account/domain"
	accountRepo "mailsync-backend/internal/account/repository"
	accountUsecase "mailsync-backend/internal/account/usecase"
	authUsecase "mailsync-backend/internal/auth/usecase"
	"mailsync-backend/internal/credential"
	"mailsync-backend/internal/email/attachment"
	emailDelivery "mailsync-backend/internal/email/delivery"
	emaildomain "mailsync-backend/internal/email/domain"
	"mailsync-backend/internal/email/fetcher"
	"mailsync-backend/internal/email/normalize"
	emailRepo "mailsync-backend/internal/email/repository"
	"mailsync-backend/internal/email/scheduler"
	"mailsync-backend/internal/email/thread"
	emailUsecase "mailsync-backend/internal/email/usecase"
	"mailsync-backend/pkg/config"
	"mailsync-backend/pkg/database"

	"github.com/lmittmann/tint"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("unable to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&accountdomain.Account{},
		&emaildomain.Message{},
		&emaildomain.Thread{},
		&emaildomain.Attachment{},
		&emaildomain.SyncRun{},
	); err != nil {
		logger.Error("unable to migrate database", "error", err)
		os.Exit(1)
	}

	// Repositories
	accountRepository := accountRepo.NewAccountRepository(db)
	messageRepository := emailRepo.NewMessageRepository(db)
	threadRepository := emailRepo.NewThreadRepository(db)
	attachmentRepository := emailRepo.NewAttachmentRepository(db)
	syncRunRepository := emailRepo.NewSyncRunRepository(db)

	// Sync engine
	credentials := credential.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.EncryptionKey, accountRepository, logger)
	fetchers := map[string]fetcher.Fetcher{
		accountdomain.ProviderIMAP:  fetcher.NewIMAPFetcher(cfg.FullSyncLookback, cfg.IMAPDialTimeout, logger),
		accountdomain.ProviderGmail: fetcher.NewGmailFetcher(cfg.FullSyncLookback, logger),
	}
	normalizer := normalize.NewNormalizer(logger)
	attachments := attachment.NewProcessor(attachmentRepository, logger)
	threads := thread.NewResolver(messageRepository, threadRepository, logger)

	syncUsecaseInstance := emailUsecase.NewEmailSyncUsecase(
		accountRepository,
		messageRepository,
		syncRunRepository,
		credentials,
		fetchers,
		normalizer,
		attachments,
		threads,
		cfg.SyncBatchSize,
		cfg.SyncRetryBase,
		cfg.SyncTimeout,
		logger,
	)

	sched := scheduler.NewScheduler(
		accountRepository,
		syncRunRepository,
		syncUsecaseInstance,
		cfg.SyncInterval,
		cfg.MaxConcurrentSyncs,
		cfg.SyncRunRetention,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SyncEnabled {
		sched.Start(ctx)
	} else {
		logger.Warn("background sync disabled by configuration")
	}

	// HTTP layer
	authUsecaseInstance := authUsecase.NewAuthUsecase(cfg.JWTSecret, cfg.JWTAccessExpiry)
	accountUsecaseInstance := accountUsecase.NewAccountUsecase(accountRepository, cfg.EncryptionKey)
	syncHandler := emailDelivery.NewSyncHandler(
		accountUsecaseInstance,
		sched,
		syncRunRepository,
		threadRepository,
		messageRepository,
	)

	handler := api.NewHandler(authUsecaseInstance, accountUsecaseInstance, syncHandler)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		serverErr <- handler.Start(":" + cfg.Port)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := handler.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if cfg.SyncEnabled {
		sched.Stop()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}
	return slog.New(handler)
}
