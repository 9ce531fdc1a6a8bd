package twitchtoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var ErrMissingCredentials = errors.New("twitch client id or secret is not set")

// Token はapp access token
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   int64  `json:"-"`
}

// Valid reports whether the token is set and not yet expired at now.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && (t.ExpiresAt == 0 || now.Unix() < t.ExpiresAt)
}

// Store holds the current app access token.
type Store struct {
	mu    sync.RWMutex
	token Token
}

func (s *Store) Set(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = t
}

func (s *Store) Get() (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token.AccessToken != ""
}

// GetAppAccessToken exchanges client credentials for an app access token.
func GetAppAccessToken(ctx context.Context, client *http.Client, tokenURL, clientID, clientSecret string) (Token, error) {
	if clientID == "" || clientSecret == "" {
		return Token{}, ErrMissingCredentials
	}
	if client == nil {
		client = http.DefaultClient
	}

	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return Token{}, err
	}
	defer resp.Body.Close()

	// レスポンスボディを読み取る
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("failed to read response body: %w", err)
	}

	var result struct {
		Token
		Error       string `json:"error"`
		Message     string `json:"message"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return Token{}, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	if resp.StatusCode != http.StatusOK || result.Error != "" {
		msg := result.Message
		if msg == "" {
			msg = result.Description
		}
		return Token{}, fmt.Errorf("Twitch API error: status=%d %s %s", resp.StatusCode, result.Error, msg)
	}
	if result.AccessToken == "" {
		return Token{}, fmt.Errorf("access_token not found in response, got: %s", string(body))
	}

	token := result.Token
	if token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Unix() + token.ExpiresIn
	}
	return token, nil
}
