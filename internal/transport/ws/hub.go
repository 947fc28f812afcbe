package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/user/hero-dispatch/internal/interfaces"
	"github.com/user/hero-dispatch/internal/types"
	"go.uber.org/zap"
)

const (
	clientQueueSize = 256
	writeTimeout    = 5 * time.Second
	readTimeout     = 60 * time.Second
)

// Message is the envelope written to every subscriber
type Message struct {
	Type  string           `json:"type"`
	Event *types.GameEvent `json:"event,omitempty"`
	State interface{}      `json:"state,omitempty"`
}

// Hub fans engine events out to websocket subscribers
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader
	// hello builds the state sent to a new subscriber; may be nil
	hello func() interface{}

	mu      sync.RWMutex
	clients map[string]chan []byte
	dropped atomic.Uint64
}

var _ interfaces.EventSink = (*Hub)(nil)

// NewHub creates a hub. hello, when set, is sent as the first message of each connection.
func NewHub(logger *zap.Logger, hello func() interface{}) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		hello:  hello,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]chan []byte),
	}
}

// Publish queues the event for every subscriber, dropping it for slow ones
func (h *Hub) Publish(event types.GameEvent) {
	b, err := json.Marshal(Message{Type: "event", Event: &event})
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("kind", string(event.Kind)), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, out := range h.clients {
		select {
		case out <- b:
		default:
			h.dropped.Add(1)
			h.logger.Debug("Subscriber queue full, dropping event", zap.String("client_id", id))
		}
	}
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped reports how many per-client deliveries were discarded
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) register() (string, chan []byte) {
	id := uuid.New().String()
	out := make(chan []byte, clientQueueSize)

	h.mu.Lock()
	h.clients[id] = out
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Subscriber connected", zap.String("client_id", id), zap.Int("clients", n))
	return id, out
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Subscriber disconnected", zap.String("client_id", id), zap.Int("clients", n))
}

// Handler upgrades the request and streams events until the client goes away
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			h.logger.Warn("Websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		id, out := h.register()
		defer h.unregister(id)

		if h.hello != nil {
			b, err := json.Marshal(Message{Type: "hello", State: h.hello()})
			if err == nil {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop only detects disconnects; the feed is one-way.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		<-done
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
	}
}
