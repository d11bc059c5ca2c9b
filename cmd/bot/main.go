package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mymmrac/telego"

	"tutorbot/internal/bot"
	"tutorbot/internal/config"
	"tutorbot/internal/database"
	"tutorbot/internal/httpserver"
	"tutorbot/internal/logging"
	"tutorbot/internal/metrics"
	"tutorbot/internal/session"
	"tutorbot/internal/settings"
	"tutorbot/internal/store"
	"tutorbot/internal/telegram"
	"tutorbot/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadConfig()
	log := logging.NewLogger(cfg.LogLevel)

	if cfg.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if len(cfg.AdminIDs) == 0 {
		log.Warn().Msg("no admin IDs configured, admin features disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	log.Info().Msg("connected to postgres")

	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	log.Info().Msg("connected to redis")

	users := store.NewUsers(db)
	payments := store.NewPayments(db)
	withdrawals := store.NewWithdrawals(db)
	trials := store.NewTrials(db)

	settingsSvc := settings.New(db, log)
	if err := settingsSvc.Refresh(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	m := metrics.Registry(cfg.MetricsNamespace)

	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	api, err := telegram.NewClient(ctx, tgBot, m)
	if err != nil {
		return fmt.Errorf("init telegram client: %w", err)
	}
	log.Info().Str("username", api.Username()).Msg("telegram bot ready")

	b := bot.New(bot.Deps{
		API:         api,
		Users:       users,
		Payments:    payments,
		Withdrawals: withdrawals,
		Trials:      trials,
		Settings:    settingsSvc,
		Sessions:    session.NewRedis(rdb, 30*time.Minute),
		Metrics:     m,
		Log:         log,
		AdminIDs:    cfg.AdminIDs,
	})

	srv := httpserver.New(cfg.HTTPAddr, users, payments, withdrawals, log)
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	digest := worker.NewDailyStats(api, rdb, log, cfg.AdminIDs, b.StatsReport)
	go digest.Run(ctx)

	log.Info().Msg("starting update loop")
	if err := b.Start(ctx, tgBot); err != nil {
		return fmt.Errorf("update loop: %w", err)
	}

	log.Info().Msg("shutdown complete")
	return nil
}
