package main

import (
	"context"
	"os"

	"outreach_tracker/internal/bootstrap"
	"outreach_tracker/internal/cli"
	"outreach_tracker/internal/infra/config"
	"outreach_tracker/internal/infra/logger"
	"outreach_tracker/internal/infra/queue"
)

func main() {
	open := func(ctx context.Context) (*bootstrap.Runtime, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logger.Init(cfg)
		logger.Log.SetOutput(os.Stderr)
		opts := bootstrap.Options{Publisher: queue.NewLogPublisher(logger.Component("events"))}
		return bootstrap.OpenSQL(ctx, cfg, opts, logger.Component("outreachctl"))
	}

	if err := cli.NewRootCommand(open).Execute(); err != nil {
		os.Exit(1)
	}
}
