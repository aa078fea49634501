package gateway

import (
	"sort"
	"sync"
)

// ClientRegistry tracks connected operators. Client state fields are only
// changed through Update so broadcasts see a consistent view.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewClientRegistry creates a new client registry
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*Client),
	}
}

// Add registers a freshly upgraded connection
func (r *ClientRegistry) Add(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ID] = client
}

// Remove forgets a client once its connection ends
func (r *ClientRegistry) Remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
}

// Update runs fn with the registry write lock held
func (r *ClientRegistry) Update(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// IsAuthenticated reports whether the client finished the challenge
func (r *ClientRegistry) IsAuthenticated(client *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return client.Authenticated
}

// RecordDecision counts a consent decision delivered by clientID
func (r *ClientRegistry) RecordDecision(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[clientID]; ok {
		client.Decisions++
	}
}

// Operators returns the clients allowed to see consent traffic
func (r *ClientRegistry) Operators() []*Client {
	return r.snapshot(true)
}

// CloseAll closes every connection. Read loops then remove their clients.
func (r *ClientRegistry) CloseAll() {
	for _, client := range r.snapshot(false) {
		_ = client.Conn.Close()
	}
}

// Count returns the number of open connections, authenticated or not
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Infos describes every connection, oldest first
func (r *ClientRegistry) Infos() []ClientInfo {
	r.mu.RLock()
	infos := make([]ClientInfo, 0, len(r.clients))
	for _, client := range r.clients {
		infos = append(infos, ClientInfo{
			ID:            client.ID,
			Authenticated: client.Authenticated,
			ConnectedAt:   client.ConnectedAt,
			IPAddress:     client.IPAddress,
			Decisions:     client.Decisions,
		})
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ConnectedAt.Before(infos[j].ConnectedAt) })
	return infos
}

func (r *ClientRegistry) snapshot(authenticatedOnly bool) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, client := range r.clients {
		if authenticatedOnly && !client.Authenticated {
			continue
		}
		clients = append(clients, client)
	}
	return clients
}
