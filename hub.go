package main

import "sync"

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub owns process-wide connection bookkeeping and the shared services a
// Client needs to route messages: the match registry, the pubsub fan-out,
// and the auth adapter. Grounded on the teacher's hub.go (register/
// unregister channel loop, per-IP connection limiting), with the
// session-manager field swapped for a *Registry and the per-player
// online-tracking map dropped (spec has no presence/friends feature).
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	registry *Registry
	pubsub   *PubSub
	repo     *Repository
	auth     *Auth

	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub wires a Hub to the shared registry/pubsub/repository/auth
// services constructed at startup.
func NewHub(registry *Registry, pubsub *PubSub, repo *Repository, auth *Auth) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		registry:   registry,
		pubsub:     pubsub,
		repo:       repo,
		auth:       auth,
		ipConns:    make(map[string]int),
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events for the lifetime of the
// process. Actual match departure is handled by Client.leaveMatch before
// it posts to unregister, so this loop only tracks the client set.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count.
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
