package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ichi0g0y/bits-wheel/internal/localdb"
	"github.com/ichi0g0y/bits-wheel/internal/overlay"
	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/wheel"
	"go.uber.org/zap"
)

const reconnectDelay = 3 * time.Second

func main() {
	configPath := flag.String("config", "", "path to overlay YAML config")
	serverURL := flag.String("server", "", "relay WebSocket URL (overrides config)")
	flag.Parse()

	logger.Init(false)
	defer logger.Sync()

	cfg, err := overlay.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load overlay config", zap.Error(err))
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if cfg.Debug {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	w, err := wheel.New(cfg.Variant)
	if err != nil {
		logger.Fatal("Failed to build wheel", zap.Error(err))
	}

	var store overlay.Store = localdb.Store{}
	if _, err := localdb.SetupDB(cfg.DBPath); err != nil {
		logger.Warn("Failed to setup database, state will not persist", zap.Error(err))
		store = overlay.NewMemoryStore()
	}
	defer localdb.CloseDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := overlay.NewScheduler(nil)
	client := overlay.NewClient(cfg.ServerURL, sched)
	engine := overlay.NewEngine(cfg, w, sched, overlay.NewLogRenderer(), store, client)
	client.SetHandler(engine.Dispatch)

	if err := sched.Post(ctx, engine.Restore); err != nil {
		logger.Fatal("Failed to restore overlay state", zap.Error(err))
	}

	logger.Info("Starting overlay",
		zap.String("server", cfg.ServerURL),
		zap.String("variant", string(cfg.Variant)),
		zap.Int("segments", wheel.SegmentCount),
		zap.Int("drops", w.DropCount()))

	go func() {
		for {
			if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Relay connection ended", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
				logger.Info("Reconnecting to relay", zap.String("server", cfg.ServerURL))
			}
		}
	}()

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Overlay loop stopped", zap.Error(err))
	}
	logger.Info("Overlay stopped")
}
