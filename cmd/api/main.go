package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/paycard/internal/cards"
	"github.com/congo-pay/paycard/internal/config"
	"github.com/congo-pay/paycard/internal/infra"
	"github.com/congo-pay/paycard/internal/logging"
	"github.com/congo-pay/paycard/internal/pipeline"
	"github.com/congo-pay/paycard/internal/server"
	"github.com/congo-pay/paycard/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = infra.NewNATSConn(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Error("connect nats", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
	}

	driver, err := pipeline.NewDriver(cfg, logger)
	if err != nil {
		logger.Error("load card template", "error", err)
		os.Exit(1)
	}
	svc := pipeline.NewService(cfg, driver, pipeline.NewNotifier(cfg, logger), logger)

	dispatcher, err := pipeline.NewDispatcher(cfg, svc, nc, logger)
	if err != nil {
		logger.Error("build dispatcher", "error", err)
		os.Exit(1)
	}

	var workers sync.WaitGroup
	if dispatcher.Queue != nil {
		for i := 0; i < max(cfg.QueueConsumers, 1); i++ {
			workers.Add(1)
			go func() {
				defer workers.Done()
				if err := dispatcher.Queue.Consume(ctx, svc); err != nil {
					logger.Error("queue consumer stopped", "error", err)
				}
			}()
		}
	}

	workers.Add(1)
	go func() {
		defer workers.Done()
		sweeper.New(cfg.OutputDir, cfg.SweepInterval, cfg.SweepTTL, logger).Run(ctx)
	}()

	opts := server.Options{Cache: cache, NATS: nc}
	if dispatcher.Deferred != nil {
		opts.Drainer = dispatcher.Deferred
	}
	srv, err := server.New(cfg, cards.NewHandler(svc, dispatcher, logger), opts, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	stop()
	workers.Wait()

	logger.Info("server exited cleanly")
}
