package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcfg "github.com/park285/chess-room-server/internal/config"
	"github.com/park285/chess-room-server/internal/coordinator"
	"github.com/park285/chess-room-server/internal/lobby"
	"github.com/park285/chess-room-server/internal/msgcat"
	"github.com/park285/chess-room-server/internal/obslog"
	"github.com/park285/chess-room-server/internal/server"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := appcfg.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_load_error", zap.Error(err))
	}

	regOpts := []lobby.Option{lobby.WithLogger(logger)}
	if cfg.RedisURL != "" {
		rdb, err := lobby.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis_init_error", zap.Error(err))
		}
		defer rdb.Close()
		regOpts = append(regOpts, lobby.WithDirectory(lobby.NewRedisDirectory(rdb, cfg.RedisNamespace)))
	}
	reg := lobby.NewRegistry(regOpts...)

	co := coordinator.New(reg,
		coordinator.WithCatalog(catalog),
		coordinator.WithLogger(logger),
		coordinator.WithEndOnCheckmate(cfg.EndOnCheckmate),
		coordinator.WithNotifyOpponentLeft(cfg.NotifyOpponentLeft),
	)

	tlsConfig, err := server.LoadTLS(cfg)
	if err != nil {
		logger.Fatal("tls_init_error", zap.Error(err))
	}

	errCh := make(chan error, 2)
	acc := server.NewAcceptor(cfg, tlsConfig, co, logger)
	go func() { errCh <- acc.ListenAndServe() }()

	var httpSrv *server.HTTPServer
	if cfg.HTTPAddr != "" {
		httpSrv = server.NewHTTPServer(cfg.HTTPAddr, reg, co, tlsConfig, cfg.WriteTimeout, logger)
		go func() { errCh <- httpSrv.ListenAndServe() }()
	}

	logger.Info("server_started",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Bool("redis_directory", cfg.RedisURL != ""),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("listener_error", zap.Error(err))
		}
	}

	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Warn("http_shutdown_error", zap.Error(err))
		}
		cancel()
	}
	acc.Stop()
	logger.Info("server_stopped", zap.Int("rooms", reg.Len()))
}
