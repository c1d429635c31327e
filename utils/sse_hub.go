package utils

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// KeepAliveInterval is the period between SSE keep-alive comments.
const KeepAliveInterval = 20 * time.Second

// sseClientBuffer bounds how many pending broadcasts a slow client may hold
// before further broadcasts skip it.
const sseClientBuffer = 8

// SSEClient is one registered stream consumer.
type SSEClient struct {
	ID string
	Ch <-chan []byte
}

// SSEHub owns the registry of open leaderboard streams. Registration and
// broadcast are safe to call from concurrent request handlers; a client
// disconnecting mid-broadcast only loses its own delivery.
type SSEHub struct {
	mu      sync.RWMutex
	clients map[string]chan []byte
}

// NewSSEHub creates an empty hub.
func NewSSEHub() *SSEHub {
	return &SSEHub{clients: make(map[string]chan []byte)}
}

// Register adds a new client and returns its handle. The caller must
// Unregister with the returned ID when the connection ends.
func (h *SSEHub) Register() *SSEClient {
	ch := make(chan []byte, sseClientBuffer)
	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()
	return &SSEClient{ID: id, Ch: ch}
}

// Unregister removes a client from the registry. The channel is left open so
// an in-flight broadcast can never panic on a closed channel.
func (h *SSEHub) Unregister(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// Broadcast delivers the payload to every registered client and returns how
// many received it. A full client buffer is skipped so one stalled connection
// never blocks delivery to the rest.
func (h *SSEHub) Broadcast(payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.clients {
		select {
		case ch <- payload:
			delivered++
		default:
		}
	}
	return delivered
}

// Len reports the number of registered clients.
func (h *SSEHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
