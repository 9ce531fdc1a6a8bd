package twitchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheerSubscription(t *testing.T) {
	var got createSubscriptionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/eventsub/subscriptions", r.URL.Path)
		assert.Equal(t, "Bearer app-token", r.Header.Get("Authorization"))
		assert.Equal(t, "client-id", r.Header.Get("Client-Id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"data":[{"id":"sub-1","status":"webhook_callback_verification_pending","type":"channel.cheer","version":"1"}]}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, ClientID: "client-id", AccessToken: "app-token", HTTP: srv.Client()}
	sub, err := c.CreateCheerSubscription(context.Background(), "1234", "https://example.com/webhooks/callback", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, "webhook_callback_verification_pending", sub.Status)
	assert.Equal(t, "channel.cheer", got.Type)
	assert.Equal(t, "1", got.Version)
	assert.Equal(t, "1234", got.Condition["broadcaster_user_id"])
	assert.Equal(t, "webhook", got.Transport.Method)
	assert.Equal(t, "https://example.com/webhooks/callback", got.Transport.Callback)
	assert.Equal(t, "s3cret", got.Transport.Secret)
}

func TestCreateCheerSubscription_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, ClientID: "id", AccessToken: "tok", HTTP: srv.Client()}
	_, err := c.CreateCheerSubscription(context.Background(), "1", "https://x/cb", "s")
	assert.ErrorIs(t, err, ErrSubscriptionExists)
}

func TestCreateCheerSubscription_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid callback"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, ClientID: "id", AccessToken: "tok", HTTP: srv.Client()}
	_, err := c.CreateCheerSubscription(context.Background(), "1", "https://x/cb", "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	_, err = c.CreateCheerSubscription(context.Background(), "", "https://x/cb", "s")
	assert.Error(t, err)

	noToken := &Client{BaseURL: srv.URL}
	_, err = noToken.CreateCheerSubscription(context.Background(), "1", "https://x/cb", "s")
	assert.Error(t, err)
}

func TestListSubscriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "channel.cheer", r.URL.Query().Get("type"))
		w.Write([]byte(`{"data":[{"id":"a","status":"enabled","type":"channel.cheer"},{"id":"b","status":"enabled","type":"channel.cheer"}]}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, ClientID: "id", AccessToken: "tok", HTTP: srv.Client()}
	subs, err := c.ListSubscriptions(context.Background(), "channel.cheer")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "b", subs[1].ID)
}

func TestEnsureCheerSubscription_ReusesExisting(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"data":[{"id":"new"}]}`))
			return
		}
		w.Write([]byte(`{"data":[` +
			`{"id":"revoked","status":"authorization_revoked","condition":{"broadcaster_user_id":"1234"},"transport":{"method":"webhook","callback":"https://x/cb"}},` +
			`{"id":"live","status":"enabled","condition":{"broadcaster_user_id":"1234"},"transport":{"method":"webhook","callback":"https://x/cb"}}]}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, ClientID: "id", AccessToken: "tok", HTTP: srv.Client()}
	sub, created, err := c.EnsureCheerSubscription(context.Background(), "1234", "https://x/cb", "s")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "live", sub.ID)
	assert.Zero(t, posts)
}

func TestEnsureCheerSubscription_CreatesWhenMissing(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"data":[{"id":"new","status":"webhook_callback_verification_pending"}]}`))
			return
		}
		w.Write([]byte(`{"data":[{"id":"other","status":"enabled","condition":{"broadcaster_user_id":"999"},"transport":{"method":"webhook","callback":"https://x/cb"}}]}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, ClientID: "id", AccessToken: "tok", HTTP: srv.Client()}
	sub, created, err := c.EnsureCheerSubscription(context.Background(), "1234", "https://x/cb", "s")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "new", sub.ID)
	assert.Equal(t, 1, posts)
}
