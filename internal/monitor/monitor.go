// Package monitor exposes a running socket's layer events over a
// small HTTP+WebSocket server, for watching a send/receive session
// live instead of reading log lines. It is opt-in: a program only
// pays for it if it constructs a Hub and wires it with
// socket.Socket.SetSink.
package monitor

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tadnir/audionet/internal/socket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local debug surface, not exposed past the operator's machine
	},
}

// Message is one event frame pushed to every connected client.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// EventPayload mirrors socket.Event in a JSON-friendly shape.
type EventPayload struct {
	Layer string `json:"layer"`
	Op    string `json:"op"`
	Bytes int    `json:"bytes"`
	Err   string `json:"error,omitempty"`
	AtUTC string `json:"at"`
}

// Hub fans socket.Event out to every connected WebSocket client. It
// satisfies socket.Sink, so it can be wired directly with
// (*socket.Socket).SetSink. Publish writes to each client in turn and
// waits for each write, so a slow client slows Publish; a client whose
// write fails is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool

	history   []Message
	historyCap int
}

// NewHub creates a Hub that retains up to historyCap recent events to
// replay to newly connecting clients. historyCap<=0 disables replay.
func NewHub(historyCap int) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		historyCap: historyCap,
	}
}

// Publish implements socket.Sink. It is safe to call from the socket's
// Send/Recv goroutines; it never touches the audio capture callback.
func (h *Hub) Publish(event socket.Event) {
	payload := EventPayload{
		Layer: event.Layer.String(),
		Op:    event.Op,
		Bytes: event.Bytes,
		AtUTC: nowUTC(),
	}
	if event.Err != nil {
		payload.Err = event.Err.Error()
	}
	h.broadcast(Message{Type: "event", Payload: payload})
}

// nowUTC is its own function so tests can see exactly what a real
// program would compute, without reaching for time.Now() in assertions.
func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("monitor: marshal event: %v", err)
		return
	}

	h.mu.Lock()
	if h.historyCap > 0 {
		h.history = append(h.history, msg)
		if len(h.history) > h.historyCap {
			h.history = h.history[len(h.history)-h.historyCap:]
		}
	}
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.removeClient(conn)
		}
	}
}

func (h *Hub) addClient(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	replay := append([]Message(nil), h.history...)
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("monitor: client connected (%d total)", n)

	for _, msg := range replay {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.removeClient(conn)
			return
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	_, present := h.clients[conn]
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	if !present {
		return
	}
	conn.Close()
	log.Printf("monitor: client disconnected (%d remaining)", n)
}

// ClientCount reports the number of currently connected WebSocket
// clients, mostly useful from tests.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Server serves the /events WebSocket endpoint and a /healthz probe.
type Server struct {
	addr string
	hub  *Hub
	mux  *http.ServeMux
}

// NewServer builds a monitor HTTP server bound to addr (e.g.
// "127.0.0.1:7654") that streams hub's events over /events.
func NewServer(addr string, hub *Hub) *Server {
	s := &Server{addr: addr, hub: hub, mux: http.NewServeMux()}
	s.mux.HandleFunc("/events", s.handleWebSocket)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	return s
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("monitor: upgrade: %v", err)
		return
	}
	s.hub.addClient(conn)

	// The monitor surface is receive-only from the client's
	// perspective; drain and discard reads so ping/close frames
	// still get processed and the connection is reaped on client
	// disconnect.
	go func() {
		defer s.hub.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ok, %d client(s)\n", s.hub.ClientCount())
}

// Start runs the monitor server until the listener fails or the
// process exits. Callers that want graceful shutdown should run it in
// its own goroutine and not rely on Start returning.
func (s *Server) Start() error {
	log.Printf("monitor: listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}
