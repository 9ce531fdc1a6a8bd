package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ichi0g0y/bits-wheel/internal/env"
	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/twitcheventsub"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

// cheer-sim は署名付きのchannel.cheer通知をリレーに送るテスト用ツール
func main() {
	target := flag.String("url", "", "relay webhook URL (default http://localhost:$PORT/webhooks/callback)")
	user := flag.String("user", "TestUser", "cheering user's display name")
	bits := flag.Int("bits", 100, "bits to cheer")
	message := flag.String("message", "", "cheer message")
	flag.Parse()

	logger.Init(false)
	defer logger.Sync()

	env.LoadEnv()
	if *target == "" {
		*target = fmt.Sprintf("http://localhost:%d/webhooks/callback", env.Value.ServerPort)
	}

	body, err := json.Marshal(map[string]interface{}{
		"subscription": map[string]string{"type": "channel.cheer", "status": "enabled"},
		"event": map[string]interface{}{
			"user_id":    "0",
			"user_login": *user,
			"user_name":  *user,
			"bits":       *bits,
			"message":    *message,
		},
	})
	if err != nil {
		logger.Fatal("Failed to build payload", zap.Error(err))
	}

	id, err := gonanoid.New()
	if err != nil {
		logger.Fatal("Failed to generate message id", zap.Error(err))
	}
	timestamp := time.Now().UTC().Format(time.RFC3339)

	req, err := http.NewRequest(http.MethodPost, *target, bytes.NewReader(body))
	if err != nil {
		logger.Fatal("Failed to build request", zap.Error(err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(twitcheventsub.HeaderMessageID, id)
	req.Header.Set(twitcheventsub.HeaderMessageTimestamp, timestamp)
	req.Header.Set(twitcheventsub.HeaderMessageType, twitcheventsub.MessageTypeNotification)
	req.Header.Set(twitcheventsub.HeaderSubscriptionType, "channel.cheer")
	req.Header.Set(twitcheventsub.HeaderMessageSignature,
		twitcheventsub.Sign(env.Value.EventSubSecret, id, timestamp, body))

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		logger.Fatal("Failed to send cheer", zap.Error(err))
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	logger.Info("Cheer sent",
		zap.String("url", *target),
		zap.Int("status", resp.StatusCode),
		zap.String("response", string(respBody)))
}
