// cmd/notification-client/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agboredim/studendashboard-sub001/internal/channel"
	"github.com/agboredim/studendashboard-sub001/internal/common/cache"
	"github.com/agboredim/studendashboard-sub001/internal/common/config"
	"github.com/agboredim/studendashboard-sub001/internal/common/logger"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification client...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
		log = logger.NewZapAdapter(zapLog)
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			zapLog.Info("metrics endpoint listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				zapLog.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	var store channel.Store
	if cfg.Cache.Enabled {
		snapshots := cache.New(cfg.Cache.Redis, config.GetDuration(cfg.Cache.SnapshotTTL), log)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := snapshots.Ping(ctx)
		cancel()
		if err != nil {
			zapLog.Warn("snapshot cache unavailable, continuing without it", zap.Error(err))
			_ = snapshots.Close()
		} else {
			store = snapshots
			defer snapshots.Close()
		}
	}

	opts := channel.Options{
		ConnectTimeout:       config.GetDuration(cfg.Channel.ConnectTimeout),
		HeartbeatInterval:    config.GetDuration(cfg.Channel.HeartbeatInterval),
		ReconnectBaseDelay:   config.GetDuration(cfg.Channel.ReconnectBaseDelay),
		ReconnectMaxDelay:    config.GetDuration(cfg.Channel.ReconnectMaxDelay),
		MaxReconnectAttempts: cfg.Channel.MaxReconnectAttempts,
		ManualReconnectDelay: config.GetDuration(cfg.Channel.ManualReconnectDelay),
	}

	mgr := channel.NewManager(
		cfg.Service.BaseURL,
		opts,
		channel.NewWebsocketTransport(),
		clock.New(),
		channel.NewLogNotifier(log),
		store,
		log,
	)

	if cfg.Service.SubjectID == "" {
		zapLog.Warn("no subject id configured, waiting idle until shutdown")
	} else {
		mgr.SetSubject(cfg.Service.SubjectID)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zapLog.Info("shutting down")
	mgr.Close()
}
