package main

import (
	"context"
	"os/signal"
	"syscall"

	"outreach_tracker/internal/bootstrap"
	"outreach_tracker/internal/infra/config"
	"outreach_tracker/internal/infra/logger"
	"outreach_tracker/internal/infra/queue"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	mainLogger := logger.Component("billing-worker")

	if cfg.AMQPURL == "" {
		mainLogger.Fatal("AMQP_URL is not set, the billing worker has nothing to consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.OpenSQL(ctx, cfg, bootstrap.Options{}, logger.Component("app"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not open database")
	}
	defer rt.Close()
	if err := rt.Migrate(ctx); err != nil {
		mainLogger.WithError(err).Fatal("Could not migrate database")
	}

	conn, ch, err := queue.Connect(cfg.AMQPURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to the message broker")
	}
	defer conn.Close()
	defer ch.Close()

	deliveries, err := queue.ConsumeBillingQueue(ch, cfg.AMQPBillingQueue)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not start billing consumer")
	}
	mainLogger.WithField("queue", cfg.AMQPBillingQueue).Info("Billing worker started")

	queue.NewBillingConsumer(rt.Services.Billing, mainLogger).Run(ctx, deliveries)
	mainLogger.Info("Billing worker shut down gracefully.")
}
