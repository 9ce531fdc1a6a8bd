package twitcheventsub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joeyak/go-twitch-eventsub/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-webhook-secret-1234567890"

func signedRequest(t *testing.T, messageType, subType, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderMessageID, "msg-1")
	req.Header.Set(HeaderMessageTimestamp, "2024-01-01T00:00:00Z")
	req.Header.Set(HeaderMessageType, messageType)
	if subType != "" {
		req.Header.Set(HeaderSubscriptionType, subType)
	}
	req.Header.Set(HeaderMessageSignature, Sign(testSecret, "msg-1", "2024-01-01T00:00:00Z", []byte(body)))
	return req
}

const cheerBody = `{"subscription":{"type":"channel.cheer","status":"enabled"},` +
	`"event":{"user_id":"1","user_login":"ada","user_name":"Ada","bits":250,"message":"gl"}}`

type capture struct {
	cheers   []twitch.EventChannelCheer
	outcomes []string
}

func newTestHandler() (*WebhookHandler, *capture) {
	c := &capture{}
	h := NewWebhookHandler(testSecret, func(evt twitch.EventChannelCheer) {
		c.cheers = append(c.cheers, evt)
	})
	h.SetObserver(func(messageType, outcome string) {
		c.outcomes = append(c.outcomes, messageType+"/"+outcome)
	})
	return h, c
}

func TestVerifySignature(t *testing.T) {
	body := []byte(cheerBody)
	header := http.Header{}
	header.Set(HeaderMessageID, "id")
	header.Set(HeaderMessageTimestamp, "ts")
	header.Set(HeaderMessageSignature, Sign(testSecret, "id", "ts", body))

	require.NoError(t, VerifySignature(testSecret, header, body))

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		assert.ErrorIs(t, VerifySignature(testSecret, header, mutated), ErrInvalidSignature, "byte %d", i)
	}

	header.Set(HeaderMessageTimestamp, "other")
	assert.ErrorIs(t, VerifySignature(testSecret, header, body), ErrInvalidSignature)

	header.Del(HeaderMessageSignature)
	assert.ErrorIs(t, VerifySignature(testSecret, header, body), ErrInvalidSignature)

	assert.ErrorIs(t, VerifySignature("other-secret", header, body), ErrInvalidSignature)
}

func TestWebhook_InvalidSignatureIsForbidden(t *testing.T) {
	h, c := newTestHandler()
	req := signedRequest(t, MessageTypeNotification, "channel.cheer", cheerBody)
	req.Header.Set(HeaderMessageSignature, "sha256=deadbeef")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, c.cheers)
	assert.Equal(t, []string{"notification/forbidden"}, c.outcomes)
}

func TestWebhook_EmptySecretRejectsEverything(t *testing.T) {
	var cheers int
	h := NewWebhookHandler("", func(twitch.EventChannelCheer) { cheers++ })

	req := httptest.NewRequest(http.MethodPost, "/webhooks/callback", strings.NewReader(cheerBody))
	req.Header.Set(HeaderMessageID, "id")
	req.Header.Set(HeaderMessageTimestamp, "ts")
	req.Header.Set(HeaderMessageType, MessageTypeNotification)
	req.Header.Set(HeaderSubscriptionType, "channel.cheer")
	req.Header.Set(HeaderMessageSignature, Sign("", "id", "ts", []byte(cheerBody)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, cheers)
	assert.ErrorIs(t, VerifySignature("", req.Header, []byte(cheerBody)), ErrInvalidSignature)
}

func TestWebhook_VerificationEchoesChallenge(t *testing.T) {
	h, _ := newTestHandler()
	body := `{"challenge":"pogchamp-kappa-360noscope-vohiyo","subscription":{"type":"channel.cheer"}}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, MessageTypeVerification, "channel.cheer", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pogchamp-kappa-360noscope-vohiyo", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
}

func TestWebhook_CheerNotification(t *testing.T) {
	h, c := newTestHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, MessageTypeNotification, "channel.cheer", cheerBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	require.Len(t, c.cheers, 1)
	assert.Equal(t, "Ada", CheerDonor(c.cheers[0]))
	assert.Equal(t, 250, c.cheers[0].Bits)
	assert.Equal(t, []string{"notification/relayed"}, c.outcomes)
}

func TestWebhook_OtherSubscriptionIgnored(t *testing.T) {
	h, c := newTestHandler()
	body := `{"subscription":{"type":"channel.follow"},"event":{"user_name":"Bob"}}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, MessageTypeNotification, "channel.follow", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, c.cheers)
	assert.Equal(t, []string{"notification/ignored"}, c.outcomes)
}

func TestWebhook_MalformedJSONAfterValidSignature(t *testing.T) {
	h, c := newTestHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, MessageTypeNotification, "channel.cheer", `{"event":`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, c.cheers)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, MessageTypeNotification, "channel.cheer", `{"event":{"bits":"lots"}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, c.cheers)
}

func TestWebhook_RevocationAndUnknownTypes(t *testing.T) {
	h, c := newTestHandler()
	body := `{"subscription":{"type":"channel.cheer","status":"authorization_revoked"}}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, MessageTypeRevocation, "channel.cheer", body))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, "mystery", "", `{}`))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, c.cheers)
	assert.Equal(t, []string{"revocation/revoked", "mystery/ignored"}, c.outcomes)
}

func TestCheerDonor_Anonymous(t *testing.T) {
	assert.Equal(t, "Anonymous", CheerDonor(twitch.EventChannelCheer{}))
}
