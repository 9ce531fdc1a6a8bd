package webserver

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ichi0g0y/bits-wheel/internal/env"
	"github.com/ichi0g0y/bits-wheel/internal/metrics"
	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/spin"
	"github.com/ichi0g0y/bits-wheel/internal/twitcheventsub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server はWebhook受信・テストAPI・WebSocket配信をまとめたリレーサーバー
type Server struct {
	hub            *Hub
	webhook        *twitcheventsub.WebhookHandler
	spinMetrics    *metrics.SpinMetrics
	webhookMetrics *metrics.WebhookMetrics
	registry       *prometheus.Registry
	bitsPerSpin    int
	maxSpins       int
	publicDir      string
	now            func() time.Time

	handler    http.Handler
	httpServer *http.Server
}

// New wires the relay from cfg. A nil registry gets a fresh one.
func New(cfg env.Config, reg *prometheus.Registry) *Server {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	perSpin := cfg.BitsPerSpin
	if perSpin <= 0 {
		perSpin = spin.DefaultBitsPerSpin
	}
	maxSpins := cfg.MaxSpins
	if maxSpins <= 0 || maxSpins > spin.MaxSpinsPerRequest {
		maxSpins = spin.MaxSpinsPerRequest
	}

	s := &Server{
		hub:            NewHub(metrics.NewWebSocketMetrics(reg)),
		spinMetrics:    metrics.NewSpinMetrics(reg),
		webhookMetrics: metrics.NewWebhookMetrics(reg),
		registry:       reg,
		bitsPerSpin:    perSpin,
		maxSpins:       maxSpins,
		publicDir:      cfg.PublicDir,
		now:            time.Now,
	}
	s.webhook = twitcheventsub.NewWebhookHandler(cfg.EventSubSecret, s.handleCheer)
	s.webhook.SetObserver(s.webhookMetrics.Observe)
	s.hub.OnMessage(s.handleClientMessage)
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/webhooks/callback", s.webhook)
	mux.HandleFunc("/api/test-spin", s.handleTestSpin)
	mux.HandleFunc("/api/start-round", s.handleStartRound)
	mux.HandleFunc("/api/logs", handleLogs)
	mux.HandleFunc("/api/logs/download", handleLogsDownload)
	mux.HandleFunc("/api/logs/clear", handleLogsClear)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/ws", s.hub)
	mux.Handle("/metrics", metrics.Handler(s.registry))

	if s.publicDir != "" {
		if stat, err := os.Stat(s.publicDir); err == nil && stat.IsDir() {
			logger.Info("Serving overlay static files", zap.String("path", s.publicDir))
			mux.Handle("/", http.FileServer(http.Dir(s.publicDir)))
		} else {
			logger.Debug("Overlay static files directory not found", zap.String("path", s.publicDir))
		}
	}

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// Handler returns the full routed handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub exposes the broadcast hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start runs the hub and listens on port. It returns once the listener is up or failed to bind.
func (s *Server) Start(port int) error {
	go s.hub.Run()

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting web server", zap.String("address", addr))

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.handler,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine and wait briefly to check for immediate errors
	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Failed to start web server", zap.Error(err))
			return fmt.Errorf("failed to start web server on port %d: %w", port, err)
		}
	case <-time.After(100 * time.Millisecond):
	}

	logger.Info("Relay ready",
		zap.String("webhook", fmt.Sprintf("http://localhost:%d/webhooks/callback", port)),
		zap.String("websocket", fmt.Sprintf("ws://localhost:%d/ws", port)))
	return nil
}

// Shutdown gracefully shuts down the web server and disconnects overlays.
func (s *Server) Shutdown(ctx context.Context) {
	s.hub.Stop()
	if s.httpServer == nil {
		return
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown web server gracefully", zap.Error(err))
	} else {
		logger.Info("Web server shutdown complete")
	}
}
