package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/poonnyworld/pbz-bots/internal/bot"
	"github.com/poonnyworld/pbz-bots/internal/catalog"
	"github.com/poonnyworld/pbz-bots/internal/config"
	"github.com/poonnyworld/pbz-bots/internal/domain"
	"github.com/poonnyworld/pbz-bots/internal/handler"
	"github.com/poonnyworld/pbz-bots/internal/handler/mw"
	"github.com/poonnyworld/pbz-bots/internal/repository"
	"github.com/poonnyworld/pbz-bots/internal/server"
	"github.com/poonnyworld/pbz-bots/internal/usecase"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := newLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init repository")
	}
	defer closeRepo()

	svc := usecase.NewService(repo, usecase.Rules{
		MaxBet:          cfg.MaxBet,
		DailyFlipLimit:  cfg.DailyFlipLimit,
		DailyReward:     cfg.DailyReward,
		DailyCooldown:   cfg.DailyCooldown,
		StartingBalance: cfg.StartingBalance,
		ActivityReward:  cfg.ActivityReward,
		Location:        cfg.Location,
	}, usecase.WithLogger(log.With().Str("component", "economy").Logger()))

	if cfg.CatalogFile != "" {
		items, err := catalog.Load(cfg.CatalogFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.CatalogFile).Msg("failed to load catalog")
		}
		added, err := catalog.Seed(ctx, svc, items)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed catalog")
		}
		log.Info().Int("added", added).Int("entries", len(items)).Msg("catalog seeded")
	}

	admin, err := adminCredentials(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare admin credentials")
	}
	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Msg("JWT_SECRET is not set, admin tokens will not survive a restart")
	}

	h := handler.NewHandler(svc, mw.NewAuth([]byte(secret)), admin, log.With().Str("component", "http").Logger())
	srv := server.NewHTTPServer(":"+cfg.ServerPort, server.NewRouter(h))

	var wg sync.WaitGroup
	if cfg.TelegramToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to telegram")
		}
		b := bot.New(svc, bot.NewTelegramSender(api), bot.Config{
			MaxBet:         cfg.MaxBet,
			DailyFlipLimit: cfg.DailyFlipLimit,
			DailyReward:    cfg.DailyReward,
			RevealDelay:    cfg.RevealDelay,
		}, log.With().Str("component", "bot").Logger())
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(ctx, api)
			b.Wait()
		}()
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN is not set, chat bot disabled")
	}

	if err := server.StartHTTPServer(ctx, srv, log); err != nil {
		log.Error().Err(err).Msg("http server failed")
		stop()
	}
	wg.Wait()
	log.Info().Msg("bye")
}

func newLogger(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	var l zerolog.Logger
	if format == "console" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		l = zerolog.New(os.Stdout)
	}
	return l.Level(lvl).With().Timestamp().Logger()
}

func openRepository(ctx context.Context, cfg *config.Config) (domain.Repository, func(), error) {
	if cfg.Store == config.StoreMemory {
		return repository.NewMemoryRepo(), func() {}, nil
	}
	repo, err := repository.NewPostgresRepo(cfg.DBDriver, cfg.DSN(), cfg.DBTimeout)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	return repo, func() { _ = repo.Close() }, nil
}

func adminCredentials(cfg *config.Config) (handler.Credentials, error) {
	creds := handler.Credentials{Username: cfg.AdminUsername}
	switch {
	case cfg.AdminPasswordHash != "":
		creds.PasswordHash = []byte(cfg.AdminPasswordHash)
	case cfg.AdminPassword != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return creds, err
		}
		creds.PasswordHash = hash
	}
	return creds, nil
}
