package spin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventType is the closed set of real-time channel message types.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventNewSpin      EventType = "newSpin"
	EventStartRound   EventType = "startRound"
	EventSpinComplete EventType = "spinComplete"
)

var (
	ErrUnknownEvent   = errors.New("unknown event type")
	ErrMalformedEvent = errors.New("malformed event")
)

// Envelope はWebSocketで送受信するメッセージの外枠
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Connected is sent to a client right after it registers with the hub.
type Connected struct {
	ClientID string `json:"clientId"`
}

// StartRound carries no fields; it triggers a manual round start on the overlay.
type StartRound struct{}

// Complete is reported by the overlay after every spin resolves.
type Complete struct {
	Result string `json:"result"`
}

func (c Complete) Validate() error {
	if strings.TrimSpace(c.Result) == "" {
		return fmt.Errorf("%w: result is empty", ErrMalformedEvent)
	}
	return nil
}

// Encode wraps payload in an Envelope and marshals it.
func Encode(t EventType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return json.Marshal(Envelope{Type: t, Data: data})
}

// Decode parses a raw message into one of Connected, Request, StartRound or Complete.
// Unknown types and payloads that fail validation are rejected.
func Decode(raw []byte) (EventType, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch env.Type {
	case EventConnected:
		var c Connected
		if err := unmarshalData(env.Data, &c); err != nil {
			return env.Type, nil, err
		}
		return env.Type, c, nil

	case EventNewSpin:
		var r Request
		if err := unmarshalData(env.Data, &r); err != nil {
			return env.Type, nil, err
		}
		if err := r.Validate(); err != nil {
			return env.Type, nil, err
		}
		return env.Type, r, nil

	case EventStartRound:
		return env.Type, StartRound{}, nil

	case EventSpinComplete:
		var c Complete
		if err := unmarshalData(env.Data, &c); err != nil {
			return env.Type, nil, err
		}
		if err := c.Validate(); err != nil {
			return env.Type, nil, err
		}
		return env.Type, c, nil

	default:
		return env.Type, nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

func unmarshalData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: missing data", ErrMalformedEvent)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}
