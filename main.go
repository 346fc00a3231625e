package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"flickfusion-tg-bot/internal/bot"
	"flickfusion-tg-bot/internal/config"
	"flickfusion-tg-bot/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration failed")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	store, err := storage.NewMongo(connectCtx, cfg.MongoURI)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("mongo connect failed")
	}

	tg, err := bot.NewTelegram(cfg.BotToken, cfg.RequestTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram connect failed")
	}
	logger.Info().Str("username", tg.Username()).Msg("bot started")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		tg.Stop()
	}()

	b := bot.New(tg, store, cfg, logger)
	b.Run(ctx, tg.Updates())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("mongo disconnect failed")
	}
	logger.Info().Msg("bot stopped")
}
