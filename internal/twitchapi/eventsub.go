package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	twitch "github.com/joeyak/go-twitch-eventsub/v3"
	"go.uber.org/zap"
)

const DefaultHelixURL = "https://api.twitch.tv/helix"

// ErrSubscriptionExists は同じ条件のサブスクリプションが既に登録済み (409)
var ErrSubscriptionExists = errors.New("eventsub subscription already exists")

// Subscription is the part of a Helix EventSub subscription the relay cares about.
type Subscription struct {
	ID        string                `json:"id"`
	Status    string                `json:"status"`
	Type      string                `json:"type"`
	Version   string                `json:"version"`
	Condition map[string]string     `json:"condition"`
	Transport SubscriptionTransport `json:"transport"`
	CreatedAt string                `json:"created_at"`
}

// SubscriptionTransport is the transport as Helix reports it; the secret is never echoed.
type SubscriptionTransport struct {
	Method   string `json:"method"`
	Callback string `json:"callback"`
}

// usable は有効または検証待ちのサブスクリプション
func (s Subscription) usable() bool {
	return s.Status == "enabled" || s.Status == "webhook_callback_verification_pending"
}

// Client calls the Helix API with an app access token.
type Client struct {
	BaseURL     string
	ClientID    string
	AccessToken string
	HTTP        *http.Client
}

type webhookTransport struct {
	Method   string `json:"method"`
	Callback string `json:"callback"`
	Secret   string `json:"secret"`
}

type createSubscriptionRequest struct {
	Type      string            `json:"type"`
	Version   string            `json:"version"`
	Condition map[string]string `json:"condition"`
	Transport webhookTransport  `json:"transport"`
}

// CreateCheerSubscription registers a channel.cheer webhook pointing at callbackURL.
func (c *Client) CreateCheerSubscription(ctx context.Context, broadcasterID, callbackURL, secret string) (*Subscription, error) {
	if broadcasterID == "" || callbackURL == "" || secret == "" {
		return nil, errors.New("broadcaster id, callback url and secret are required")
	}

	body, err := json.Marshal(createSubscriptionRequest{
		Type:      string(twitch.SubChannelCheer),
		Version:   "1",
		Condition: map[string]string{"broadcaster_user_id": broadcasterID},
		Transport: webhookTransport{Method: "webhook", Callback: callbackURL, Secret: secret},
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/eventsub/subscriptions", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
	case http.StatusConflict:
		return nil, ErrSubscriptionExists
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Data []Subscription `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode subscription response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, errors.New("subscription response has no data")
	}

	sub := result.Data[0]
	logger.Info("EventSub subscription created",
		zap.String("id", sub.ID),
		zap.String("type", sub.Type),
		zap.String("status", sub.Status))
	return &sub, nil
}

// ListSubscriptions returns the subscriptions of the given type. An empty type lists all of them.
func (c *Client) ListSubscriptions(ctx context.Context, subType string) ([]Subscription, error) {
	path := "/eventsub/subscriptions"
	if subType != "" {
		path += "?" + url.Values{"type": {subType}}.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data []Subscription `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if c.AccessToken == "" {
		return nil, errors.New("no access token available")
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultHelixURL
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Client-Id", c.ClientID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	return hc.Do(req)
}

// EnsureCheerSubscription reuses a usable channel.cheer webhook for the same broadcaster and callback,
// and creates one otherwise. created is false when an existing subscription was found.
func (c *Client) EnsureCheerSubscription(ctx context.Context, broadcasterID, callbackURL, secret string) (sub *Subscription, created bool, err error) {
	subs, err := c.ListSubscriptions(ctx, string(twitch.SubChannelCheer))
	if err != nil {
		logger.Warn("Failed to list EventSub subscriptions, creating without check", zap.Error(err))
	}
	for i := range subs {
		s := subs[i]
		if s.usable() && s.Condition["broadcaster_user_id"] == broadcasterID && s.Transport.Callback == callbackURL {
			logger.Info("EventSub subscription already registered",
				zap.String("id", s.ID),
				zap.String("status", s.Status))
			return &s, false, nil
		}
	}

	sub, err = c.CreateCheerSubscription(ctx, broadcasterID, callbackURL, secret)
	if err != nil {
		return nil, false, err
	}
	return sub, true, nil
}
