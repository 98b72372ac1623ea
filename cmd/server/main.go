package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"outreach_tracker/internal/bootstrap"
	"outreach_tracker/internal/domain/events"
	"outreach_tracker/internal/infra/config"
	"outreach_tracker/internal/infra/httpapi"
	"outreach_tracker/internal/infra/logger"
	"outreach_tracker/internal/infra/queue"
	"outreach_tracker/internal/infra/scheduler"
	"outreach_tracker/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"driver":      cfg.DatabaseDriver,
		"http_addr":   cfg.HTTPAddr,
	}).Info("Outreach tracker starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher events.Publisher = queue.NewLogPublisher(logger.Component("events"))
	if cfg.AMQPURL != "" {
		conn, ch, err := queue.Connect(cfg.AMQPURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to the message broker")
		}
		defer conn.Close()
		defer ch.Close()
		if err := queue.DeclareEventsExchange(ch, cfg.AMQPEventsExchange); err != nil {
			mainLogger.WithError(err).Fatal("Could not declare events exchange")
		}
		publisher = queue.NewEventPublisher(ch, cfg.AMQPEventsExchange, logger.Component("events"))
		mainLogger.WithField("exchange", cfg.AMQPEventsExchange).Info("Publishing domain events to RabbitMQ")
	}

	opts := bootstrap.Options{Publisher: publisher}
	var bot *telebot.Bot
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewBot(cfg.TelegramToken, logger.Component("telegram"))
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		opts.Telegram = telegram.NewTelebotAdapter(bot)
	} else {
		mainLogger.Warn("TELEGRAM_TOKEN is not set, digests and bot commands are disabled")
	}

	rt, err := bootstrap.OpenSQL(ctx, cfg, opts, logger.Component("app"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not open database")
	}
	defer rt.Close()
	if err := rt.Migrate(ctx); err != nil {
		mainLogger.WithError(err).Fatal("Could not migrate database")
	}
	svc := rt.Services

	if bot != nil {
		replies := telegram.NewReplies(svc.Settings, svc.Outreach, svc.Digests, logger.Component("telegram"))
		telegram.RegisterBotCommands(ctx, bot, replies, logger.Component("telegram"))
		telegram.RegisterFollowUpHandlers(ctx, bot, replies, logger.Component("telegram"))
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	digestScheduler := scheduler.NewDigestScheduler(svc.Digests, logger.Component("scheduler"), cfg.CronSpecDigest, cfg.Location)
	if err := digestScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start digest scheduler")
	}

	handler := httpapi.NewHandler(svc.Outreach, svc.Settings, svc.Entitlements, svc.Directory, rt.Clock, logger.Component("http"))
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	mainLogger.Info("Shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("HTTP server did not shut down cleanly")
	}
	digestScheduler.Stop()
	if bot != nil {
		bot.Stop()
	}
	mainLogger.Info("Application shut down gracefully.")
}
