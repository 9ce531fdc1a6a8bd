package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ichi0g0y/bits-wheel/internal/env"
	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/twitchapi"
	"github.com/ichi0g0y/bits-wheel/internal/twitchtoken"
	"go.uber.org/zap"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// fetchAppToken makes one attempt at an app access token. Failure is not fatal; webhooks work without it.
func fetchAppToken(store *twitchtoken.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, err := twitchtoken.GetAppAccessToken(ctx, httpClient, env.Value.TokenURL, env.Value.ClientID, env.Value.ClientSecret)
	if err != nil {
		logger.Warn("Failed to get Twitch app access token", zap.Error(err))
		return
	}

	store.Set(token)
	logger.Info("Twitch app access token acquired", zap.Int64("expires_in", token.ExpiresIn))
}

// subscribeCheer registers the channel.cheer webhook when the broadcaster and callback are configured.
// It runs after the listener is up so Twitch's verification request can be answered.
func subscribeCheer(store *twitchtoken.Store) {
	if !env.Value.AutoSubscribe() {
		logger.Debug("EventSub auto subscription disabled")
		return
	}
	token, ok := store.Get()
	if !ok || !token.Valid(time.Now()) {
		logger.Warn("Skipping EventSub subscription: no valid app access token")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := &twitchapi.Client{
		BaseURL:     env.Value.HelixURL,
		ClientID:    env.Value.ClientID,
		AccessToken: token.AccessToken,
		HTTP:        httpClient,
	}
	_, _, err := client.EnsureCheerSubscription(ctx, env.Value.BroadcasterID, env.Value.CallbackURL, env.Value.EventSubSecret)
	switch {
	case errors.Is(err, twitchapi.ErrSubscriptionExists):
		logger.Info("channel.cheer subscription already exists")
	case err != nil:
		logger.Error("Failed to subscribe to channel.cheer", zap.Error(err))
	}
}
