package webserver

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ichi0g0y/bits-wheel/internal/metrics"
	"github.com/ichi0g0y/bits-wheel/internal/shared/logger"
	"github.com/ichi0g0y/bits-wheel/internal/spin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	clientSendBuffer = 256
	broadcastBuffer  = 256
	pongWait         = 60 * time.Second
	pingPeriod       = 54 * time.Second
	writeWait        = 10 * time.Second
)

// WSClient はWebSocket接続クライアントを表す
type WSClient struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	clientID    string
	connectedAt time.Time
}

// Hub はすべてのWebSocket接続を管理し、イベントを全クライアントに配信する
type Hub struct {
	clients    map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	metrics   *metrics.WebSocketMetrics
	onMessage func(c *WSClient, t spin.EventType, payload interface{})
}

var wsUpgrader = websocket.Upgrader{
	// オーバーレイはOBSのブラウザソースなど任意のオリジンから接続する
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func NewHub(m *metrics.WebSocketMetrics) *Hub {
	return &Hub{
		clients:    make(map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
		metrics:    m,
	}
}

// OnMessage sets the callback for decoded inbound client events. Call before Run.
func (h *Hub) OnMessage(fn func(c *WSClient, t spin.EventType, payload interface{})) {
	h.onMessage = fn
}

// Run owns the client set until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.setActive(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.setActive(total)

			logger.Info("WebSocket client connected",
				zap.String("clientId", client.clientID),
				zap.Int("total_clients", total))

			// 接続確認メッセージを送信
			if data, err := spin.Encode(spin.EventConnected, spin.Connected{ClientID: client.clientID}); err == nil {
				select {
				case client.send <- data:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				remaining := len(h.clients)
				h.mu.Unlock()
				h.setActive(remaining)

				logger.Info("WebSocket client disconnected",
					zap.String("clientId", client.clientID),
					zap.Int("remaining_clients", remaining))
			} else {
				h.mu.Unlock()
			}

		case data := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// クライアントのバッファがフルの場合は切断
					delete(h.clients, client)
					close(client.send)
					logger.Warn("WebSocket client too slow, dropped", zap.String("clientId", client.clientID))
				}
			}
			remaining := len(h.clients)
			h.mu.Unlock()
			h.setActive(remaining)
		}
	}
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) setActive(n int) {
	if h.metrics != nil {
		h.metrics.ActiveConnections.Set(float64(n))
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish encodes and queues an event for every client. It never blocks.
func (h *Hub) Publish(t spin.EventType, payload interface{}) error {
	data, err := spin.Encode(t, payload)
	if err != nil {
		logger.Error("Failed to marshal WebSocket broadcast data", zap.Error(err))
		return err
	}

	select {
	case h.broadcast <- data:
		if h.metrics != nil {
			h.metrics.MessagesPublished.Inc()
		}
		logger.Debug("WebSocket message queued for broadcast", zap.String("message_type", string(t)))
		return nil
	default:
		logger.Warn("WebSocket broadcast channel full, message dropped", zap.String("message_type", string(t)))
		return fmt.Errorf("broadcast channel full, %s dropped", t)
	}
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = generateClientID()
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	client := &WSClient{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, clientSendBuffer),
		clientID:    clientID,
		connectedAt: time.Now(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) ID() string { return c.clientID }

func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		t, payload, err := spin.Decode(message)
		if err != nil {
			logger.Debug("Ignoring WebSocket message from client",
				zap.String("clientId", c.clientID),
				zap.String("message", string(message)),
				zap.Error(err))
			continue
		}
		if c.hub.onMessage != nil {
			c.hub.onMessage(c, t, payload)
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// generateClientID クライアントIDを生成
func generateClientID() string {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}
	return "ws-" + id
}
