package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"backend-hallpass/internal/monitoring"
	"backend-hallpass/internal/pass"

	"github.com/gofiber/websocket/v2"
)

const (
	pollInterval      = 1 * time.Second
	keepAliveInterval = 15 * time.Second
	writeTimeout      = 3 * time.Second
)

var keepAliveMsg = []byte(`{"type":"keepalive"}`)

type client struct {
	conn     *websocket.Conn
	writeMux sync.Mutex
	closed   bool
	id       string
}

// Hub distributes status payloads to every display subscribed to one
// tenant. A 1s poll recomputes the payload; only signature changes are
// pushed, with a keep-alive when nothing changed for a while.
type Hub struct {
	tenantID int64
	reg      *pass.Registry

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client

	kick     chan struct{}
	lastSig  string
	lastPush time.Time
}

// Hubs lazily creates one Hub per tenant.
type Hubs struct {
	mu      sync.Mutex
	reg     *pass.Registry
	hubs    map[int64]*Hub
	counter uint64 // atomic, client ids across all hubs
}

func NewHubs(reg *pass.Registry) *Hubs {
	return &Hubs{reg: reg, hubs: make(map[int64]*Hub)}
}

func (h *Hubs) Get(tenantID int64) *Hub {
	h.mu.Lock()
	defer h.mu.Unlock()

	hub, ok := h.hubs[tenantID]
	if !ok {
		hub = &Hub{
			tenantID: tenantID,
			reg:      h.reg,
			clients:  make(map[*websocket.Conn]*client),
			kick:     make(chan struct{}, 1),
		}
		h.hubs[tenantID] = hub
		go hub.run()
	}
	return hub
}

// Wake forces an immediate recompute after a scan or admin action instead
// of waiting for the next poll tick. No-op if no display ever connected.
func (h *Hubs) Wake(tenantID int64) {
	h.mu.Lock()
	hub, ok := h.hubs[tenantID]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case hub.kick <- struct{}{}:
	default:
	}
}

func (h *Hubs) nextClientID() string {
	return fmt.Sprintf("display-%d", atomic.AddUint64(&h.counter, 1))
}

// Attach registers a display connection and sends it the current payload.
func (h *Hubs) Attach(tenantID int64, c *websocket.Conn) {
	hub := h.Get(tenantID)

	cl := &client{conn: c, id: h.nextClientID()}
	hub.mu.Lock()
	hub.clients[c] = cl
	total := len(hub.clients)
	hub.mu.Unlock()

	monitoring.SetDisplayClients(tenantID, total)
	log.Printf("[display] %s attached to tenant %d, total: %d", cl.id, tenantID, total)

	if msg, err := hub.currentMessage(); err == nil {
		hub.writeToClient(cl, msg)
	} else {
		log.Printf("[display] %s initial payload failed: %v", cl.id, err)
	}
}

// Detach removes the connection; other subscribers and tenant state are
// unaffected.
func (h *Hubs) Detach(tenantID int64, c *websocket.Conn) {
	hub := h.Get(tenantID)

	hub.mu.Lock()
	cl, ok := hub.clients[c]
	if ok {
		cl.writeMux.Lock()
		cl.closed = true
		cl.writeMux.Unlock()
		delete(hub.clients, c)
	}
	total := len(hub.clients)
	hub.mu.Unlock()

	_ = c.Close()
	monitoring.SetDisplayClients(tenantID, total)
	if ok {
		log.Printf("[display] %s detached from tenant %d, total: %d", cl.id, tenantID, total)
	}
}

func (hub *Hub) run() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-hub.kick:
		}
		hub.tick()
	}
}

func (hub *Hub) clientCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

func (hub *Hub) currentMessage() ([]byte, error) {
	snap, err := hub.reg.Snapshot(context.Background(), hub.tenantID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(BuildPayload(snap, time.Now()))
}

func (hub *Hub) tick() {
	if hub.clientCount() == 0 {
		return
	}

	snap, err := hub.reg.Snapshot(context.Background(), hub.tenantID)
	if err != nil {
		log.Printf("[display] tenant %d snapshot failed: %v", hub.tenantID, err)
		return
	}

	payload := BuildPayload(snap, time.Now())
	sig := Signature(payload)

	if sig != hub.lastSig {
		msg, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[display] tenant %d marshal failed: %v", hub.tenantID, err)
			return
		}
		hub.lastSig = sig
		hub.lastPush = time.Now()
		hub.broadcast(msg)
		return
	}

	// Nothing changed; keep intermediaries from dropping idle streams.
	if time.Since(hub.lastPush) > keepAliveInterval {
		hub.lastPush = time.Now()
		hub.broadcast(keepAliveMsg)
	}
}

func (hub *Hub) broadcast(msg []byte) {
	hub.mu.RLock()
	clients := make([]*client, 0, len(hub.clients))
	for _, cl := range hub.clients {
		clients = append(clients, cl)
	}
	hub.mu.RUnlock()

	for _, cl := range clients {
		hub.writeToClient(cl, msg)
	}
}

func (hub *Hub) writeToClient(cl *client, msg []byte) {
	cl.writeMux.Lock()
	defer cl.writeMux.Unlock()

	if cl.closed {
		return
	}

	cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Printf("[display] %s write error: %v", cl.id, err)
		cl.closed = true

		go func(conn *websocket.Conn, id string) {
			hub.mu.Lock()
			delete(hub.clients, conn)
			total := len(hub.clients)
			hub.mu.Unlock()
			_ = conn.Close()
			monitoring.SetDisplayClients(hub.tenantID, total)
			log.Printf("[display] %s removed after write error", id)
		}(cl.conn, cl.id)
	}
}
