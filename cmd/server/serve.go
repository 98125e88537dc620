package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/framedex/pkg/api"
	"github.com/hazyhaar/framedex/pkg/chassis"
	"github.com/hazyhaar/framedex/pkg/sources"
	"github.com/hazyhaar/framedex/pkg/watch"
)

func cmdServe(args []string) {
	f := newFlags("serve")
	addr := f.fs.String("addr", "", "listen address (overrides config)")
	f.fs.Parse(args)

	cfg := f.load()
	if *addr != "" {
		cfg.Addr = *addr
	}
	logger := cfg.logger()

	reg, err := newRegistry(cfg, logger)
	if err != nil {
		fatal(logger, "registry", err)
	}
	if cfg.Preload {
		if err := reg.Preload(); err != nil {
			logger.Warn("preload finished with errors", "error", err)
		}
	}

	mcpSrv := api.NewMCPServer(reg, logger)
	router := api.NewRouter(reg, mcpSrv, logger)

	srv, err := chassis.New(chassis.Config{
		Addr:      cfg.Addr,
		Plain:     !cfg.TLS.Enabled,
		CertFile:  cfg.TLS.CertFile,
		KeyFile:   cfg.TLS.KeyFile,
		Handler:   router,
		MCPServer: mcpSrv,
		Logger:    logger,
	})
	if err != nil {
		fatal(logger, "chassis", err)
	}

	// SIGINT/SIGTERM: graceful shutdown. SIGHUP: reload data.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading data")
			if err := reg.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
			}
		}
	}()

	if cfg.Watch {
		w := watch.New(cfg.DataDir, reg, watch.Options{Logger: logger})
		if err := w.Start(); err != nil {
			logger.Warn("file watcher disabled", "error", err)
		} else {
			defer w.Stop()
		}
	}

	if cfg.CheckInterval > 0 {
		sdb, err := sources.OpenSourceDB(cfg.sourcesDBPath())
		if err != nil {
			fatal(logger, "open sources db", err)
		}
		defer sdb.Close()
		go sources.NewChecker(sdb, logger, cfg.CheckInterval).Start(ctx)
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
}
