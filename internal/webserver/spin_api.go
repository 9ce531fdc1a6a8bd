package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/spin"
	"github.com/ichi0g0y/bits-wheel/internal/twitcheventsub"
	"github.com/ichi0g0y/bits-wheel/internal/wheel"
	"github.com/joeyak/go-twitch-eventsub/v3"
	"go.uber.org/zap"
)

const (
	sourceCheer = "cheer"
	sourceTest  = "test"

	testDonor   = "TestUser"
	testBits    = 100
	testMessage = "Test spin!"

	healthTimeFormat = "2006-01-02T15:04:05.000Z07:00"
)

type testSpinRequest struct {
	Donor string `json:"donor"`
	Bits  int    `json:"bits"`
}

// publishSpin broadcasts a newSpin and records it. Requests without spins are only broadcast when force is set.
func (s *Server) publishSpin(req spin.Request, source string, force bool) {
	if req.Spins <= 0 && !force {
		logger.Info("Donation below one spin, not broadcast",
			zap.String("donor", req.Donor),
			zap.Int("bits", req.Bits))
		return
	}

	if err := s.hub.Publish(spin.EventNewSpin, req); err != nil {
		return
	}
	s.spinMetrics.Requests.WithLabelValues(source).Inc()
	s.spinMetrics.Broadcast.Add(float64(req.Spins))

	logger.Info("Spin broadcast",
		zap.String("source", source),
		zap.String("donor", req.Donor),
		zap.Int("bits", req.Bits),
		zap.Int("spins", req.Spins))
}

func (s *Server) handleCheer(evt twitch.EventChannelCheer) {
	req := spin.NewRequest(twitcheventsub.CheerDonor(evt), evt.Bits, s.bitsPerSpin, evt.Message)
	if req.Spins > s.maxSpins {
		logger.Warn("Cheer exceeds the spin limit, capped",
			zap.String("donor", req.Donor),
			zap.Int("bits", req.Bits),
			zap.Int("spins", req.Spins),
			zap.Int("max_spins", s.maxSpins))
		req.Spins = s.maxSpins
	}
	s.publishSpin(req, sourceCheer, false)
}

// handleTestSpin はWebhookを経由せずにスピンを発生させる
func (s *Server) handleTestSpin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body testSpinRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid JSON body"})
		return
	}
	if body.Bits < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "bits must not be negative"})
		return
	}

	donor := strings.TrimSpace(body.Donor)
	if donor == "" {
		donor = testDonor
	}
	bits := body.Bits
	if bits == 0 {
		bits = testBits
	}

	req := spin.NewRequest(donor, bits, s.bitsPerSpin, testMessage)
	if req.Spins > s.maxSpins {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   fmt.Sprintf("at most %d spins per request", s.maxSpins),
		})
		return
	}
	s.publishSpin(req, sourceTest, true)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"spins":   req.Spins,
	})
}

// handleStartRound asks every overlay to start a round from its queue.
func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.hub.Publish(spin.EventStartRound, spin.StartRound{}); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"success": false, "error": err.Error()})
		return
	}
	logger.Info("Manual round start broadcast")
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(healthTimeFormat),
	})
}

// handleClientMessage receives decoded events from overlay clients.
func (s *Server) handleClientMessage(c *WSClient, t spin.EventType, payload interface{}) {
	if t != spin.EventSpinComplete {
		logger.Debug("Ignoring client event", zap.String("clientId", c.ID()), zap.String("type", string(t)))
		return
	}
	result := payload.(spin.Complete).Result
	s.spinMetrics.Results.WithLabelValues(resultLabel(result)).Inc()
	logger.Info("Spin completed", zap.String("clientId", c.ID()), zap.String("result", result))
}

// resultLabel bounds the metric label set to the known wheel outcomes.
func resultLabel(result string) string {
	switch result {
	case wheel.KeepChar.String(), wheel.KeepShared.String(), wheel.Drop.String():
		return result
	default:
		return "other"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write JSON response", zap.Error(err))
	}
}
