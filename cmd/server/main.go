package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ichi0g0y/bits-wheel/internal/env"
	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/twitchtoken"
	"github.com/ichi0g0y/bits-wheel/internal/webserver"
	"go.uber.org/zap"
)

func main() {
	logger.Init(false)
	defer logger.Sync()

	logger.Info("Starting bits-wheel relay")

	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	tokens := &twitchtoken.Store{}
	fetchAppToken(tokens)

	server := webserver.New(env.Value, nil)
	if err := server.Start(env.Value.ServerPort); err != nil {
		logger.Fatal("Failed to start web server", zap.Error(err))
	}

	logger.Info("Server started",
		zap.Int("port", env.Value.ServerPort),
		zap.Int("bits_per_spin", env.Value.BitsPerSpin))

	go subscribeCheer(tokens)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)

	logger.Info("Shutdown complete")
}
