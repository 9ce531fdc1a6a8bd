package overlay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/spin"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	sendBuffer = 64
)

// EventHandler runs on the Scheduler loop for every decoded event.
type EventHandler func(t spin.EventType, payload interface{})

// Client はリレーサーバーのWebSocketに接続し、受信イベントをSchedulerへ渡す
type Client struct {
	url     string
	sched   *Scheduler
	handler EventHandler
	dialer  *websocket.Dialer
	send    chan []byte
}

func NewClient(url string, sched *Scheduler) *Client {
	return &Client{
		url:    url,
		sched:  sched,
		dialer: websocket.DefaultDialer,
		send:   make(chan []byte, sendBuffer),
	}
}

// SetHandler must be called before Run.
func (c *Client) SetHandler(h EventHandler) {
	c.handler = h
}

// Run connects and reads until ctx is cancelled or the connection drops.
func (c *Client) Run(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}
	logger.Info("Connected to relay WebSocket", zap.String("url", c.url))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx, conn)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return c.readPump(ctx, conn)
}

func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("Relay closed the connection")
				return nil
			}
			return fmt.Errorf("websocket read failed: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		t, payload, err := spin.Decode(message)
		if err != nil {
			if errors.Is(err, spin.ErrUnknownEvent) {
				logger.Debug("Ignoring unknown event", zap.String("type", string(t)))
			} else {
				logger.Warn("Rejected event", zap.String("type", string(t)), zap.Error(err))
			}
			continue
		}
		if c.handler == nil {
			continue
		}

		h := c.handler
		if err := c.sched.Post(ctx, func() { h(t, payload) }); err != nil {
			return err
		}
	}
}

func (c *Client) writePump(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Warn("Failed to send to relay", zap.Error(err))
				return
			}
		}
	}
}

// ReportSpinComplete queues a spinComplete message. It never blocks; a full buffer drops the report.
func (c *Client) ReportSpinComplete(result string) {
	data, err := spin.Encode(spin.EventSpinComplete, spin.Complete{Result: result})
	if err != nil {
		logger.Error("Failed to encode spinComplete", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Warn("Send buffer full, spinComplete dropped", zap.String("result", result))
	}
}
