// Package live broadcasts spectrum snapshots to connected websocket
// clients, for a live "waterfall" view alongside the scanner.
package live

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Snapshot is a single scan cycle's spectrum and detected peaks, sent
// to every connected client as JSON.
type Snapshot struct {
	CenterFrequencyHz float64   `json:"center_frequency_hz"`
	Freqs             []float64 `json:"freqs"`
	SpectrumDB        []float64 `json:"spectrum_db"`
	PeakFreqsHz       []float64 `json:"peak_freqs_hz"`
}

// Broadcaster fans out Snapshots to all currently connected websocket
// clients. A slow or disconnected client is dropped rather than
// blocking the scan loop.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan Snapshot
}

// New builds an empty broadcaster.
func New() *Broadcaster {
	return &Broadcaster{clients: make(map[*websocket.Conn]chan Snapshot)}
}

// ServeHTTP upgrades the connection and streams snapshots until the
// client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("live: upgrade failed: %v", err)
		return
	}

	ch := make(chan Snapshot, 8)
	b.mu.Lock()
	b.clients[conn] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.clients, conn)
		b.mu.Unlock()
		conn.Close()
	}()

	for snap := range ch {
		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// Broadcast sends snap to every connected client, dropping clients
// whose buffer is full rather than blocking the scan loop.
func (b *Broadcaster) Broadcast(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn, ch := range b.clients {
		select {
		case ch <- snap:
		default:
			delete(b.clients, conn)
			close(ch)
			conn.Close()
		}
	}
}

// ClientCount reports the number of currently connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
