package twitcheventsub

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/joeyak/go-twitch-eventsub/v3"
	"go.uber.org/zap"
)

const (
	HeaderMessageID        = "Twitch-Eventsub-Message-Id"
	HeaderMessageTimestamp = "Twitch-Eventsub-Message-Timestamp"
	HeaderMessageSignature = "Twitch-Eventsub-Message-Signature"
	HeaderMessageType      = "Twitch-Eventsub-Message-Type"
	HeaderSubscriptionType = "Twitch-Eventsub-Subscription-Type"

	MessageTypeVerification = "webhook_callback_verification"
	MessageTypeNotification = "notification"
	MessageTypeRevocation   = "revocation"

	signaturePrefix = "sha256="
	maxBodyBytes    = 1 << 20
	anonymousDonor  = "Anonymous"
)

// Outcomes passed to the Observer.
const (
	OutcomeForbidden  = "forbidden"
	OutcomeBadRequest = "bad_request"
	OutcomeChallenge  = "challenge"
	OutcomeRelayed    = "relayed"
	OutcomeIgnored    = "ignored"
	OutcomeRevoked    = "revoked"
)

var ErrInvalidSignature = errors.New("invalid eventsub signature")

// Sign returns the expected signature header value for a message.
func Sign(secret, messageID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the HMAC headers against body in constant time.
// An empty secret rejects every message.
func VerifySignature(secret string, header http.Header, body []byte) error {
	if secret == "" {
		return ErrInvalidSignature
	}
	got := header.Get(HeaderMessageSignature)
	if got == "" || !strings.HasPrefix(got, signaturePrefix) {
		return ErrInvalidSignature
	}
	want := Sign(secret, header.Get(HeaderMessageID), header.Get(HeaderMessageTimestamp), body)
	if !hmac.Equal([]byte(got), []byte(want)) {
		return ErrInvalidSignature
	}
	return nil
}

// CheerDonor returns the display name to credit for a cheer.
func CheerDonor(evt twitch.EventChannelCheer) string {
	if name := strings.TrimSpace(evt.User.UserName); name != "" {
		return name
	}
	return anonymousDonor
}

type webhookPayload struct {
	Subscription struct {
		Type   twitch.EventSubscription `json:"type"`
		Status string                   `json:"status"`
	} `json:"subscription"`
	Challenge string          `json:"challenge"`
	Event     json.RawMessage `json:"event"`
}

// WebhookHandler はEventSub webhookを検証し、cheerイベントをコールバックに渡す
type WebhookHandler struct {
	secret  string
	onCheer func(twitch.EventChannelCheer)
	observe func(messageType, outcome string)
}

func NewWebhookHandler(secret string, onCheer func(twitch.EventChannelCheer)) *WebhookHandler {
	return &WebhookHandler{secret: secret, onCheer: onCheer}
}

// SetObserver registers a hook called once per request with the message type and outcome.
func (h *WebhookHandler) SetObserver(fn func(messageType, outcome string)) {
	h.observe = fn
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	messageType := r.Header.Get(HeaderMessageType)
	if err := VerifySignature(h.secret, r.Header, body); err != nil {
		logger.Warn("Rejected EventSub webhook",
			zap.String("message_id", r.Header.Get(HeaderMessageID)),
			zap.Error(err))
		h.report(messageType, OutcomeForbidden)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Warn("Malformed EventSub payload", zap.Error(err))
		h.report(messageType, OutcomeBadRequest)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	switch messageType {
	case MessageTypeVerification:
		logger.Info("EventSub webhook verification",
			zap.String("subscription", string(payload.Subscription.Type)))
		h.report(messageType, OutcomeChallenge)
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(payload.Challenge))

	case MessageTypeNotification:
		h.handleNotification(w, r, payload)

	case MessageTypeRevocation:
		logger.Warn("EventSub subscription revoked",
			zap.String("subscription", string(payload.Subscription.Type)),
			zap.String("status", payload.Subscription.Status))
		h.report(messageType, OutcomeRevoked)
		writeOK(w)

	default:
		logger.Debug("Unhandled EventSub message type", zap.String("type", messageType))
		h.report(messageType, OutcomeIgnored)
		writeOK(w)
	}
}

func (h *WebhookHandler) handleNotification(w http.ResponseWriter, r *http.Request, payload webhookPayload) {
	subType := twitch.EventSubscription(r.Header.Get(HeaderSubscriptionType))
	if subType == "" {
		subType = payload.Subscription.Type
	}
	if subType != "" && subType != twitch.SubChannelCheer {
		logger.Info("Ignoring EventSub notification", zap.String("subscription", string(subType)))
		h.report(MessageTypeNotification, OutcomeIgnored)
		writeOK(w)
		return
	}

	var evt twitch.EventChannelCheer
	if len(payload.Event) == 0 {
		h.report(MessageTypeNotification, OutcomeBadRequest)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if err := json.Unmarshal(payload.Event, &evt); err != nil {
		logger.Warn("Failed to parse cheer event", zap.Error(err))
		h.report(MessageTypeNotification, OutcomeBadRequest)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	logger.Info("Cheer received",
		zap.String("user", CheerDonor(evt)),
		zap.Int("bits", evt.Bits))

	if h.onCheer != nil {
		h.onCheer(evt)
	}
	h.report(MessageTypeNotification, OutcomeRelayed)
	writeOK(w)
}

func (h *WebhookHandler) report(messageType, outcome string) {
	if h.observe == nil {
		return
	}
	if messageType == "" {
		messageType = "unknown"
	}
	h.observe(messageType, outcome)
}

func writeOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
