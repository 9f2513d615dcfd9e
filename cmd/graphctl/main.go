// Command graphctl runs the handshake graph jobs against the configured stores.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gdugdh24/handshake-backend/internal/config"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/container"
	"github.com/gdugdh24/handshake-backend/pkg/logger"
)

func main() {
	root := newRootCmd(loadEngine)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadEngine(ctx context.Context) (*engine, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}

	app, err := container.NewContainer(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		_ = app.Close()
		_ = log.Sync()
	}
	return &engine{
		recipients:  app.Recipients,
		chains:      app.Chains,
		clusters:    app.Clusters,
		connections: app.Connections,
	}, closeFn, nil
}
