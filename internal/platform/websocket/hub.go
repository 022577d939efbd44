// Package websocket delivers real-time queue-change signals to connected
// display clients. The hub keeps the set of active subscribers; broadcasts
// are fire-and-forget and carry no payload — clients re-fetch the queue on
// every signal.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// EventQueueUpdated is broadcast after every registration or serve command.
const EventQueueUpdated = "QueueUpdated"

// Event is the signal sent to subscribers. It intentionally carries no queue
// data; subscribers pull the current queue themselves.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the service-facing side of the hub. Publish never blocks on a
// slow subscriber and never returns a delivery error for one.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single subscriber connection.
type Client struct {
	ID   string
	Send chan []byte
	conn Conn
}

// Hub is the central connection manager. All operations are thread-safe via
// sync.RWMutex.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	sendBuf int
	logger  zerolog.Logger
}

// NewHub creates a Hub whose clients get send buffers of sendBuf messages.
func NewHub(sendBuf int, logger zerolog.Logger) *Hub {
	if sendBuf <= 0 {
		sendBuf = 16
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		sendBuf: sendBuf,
		logger:  logger,
	}
}

// NewClient creates a client for the given connection. The client is not yet
// registered with the hub.
func (h *Hub) NewClient(conn Conn) *Client {
	return &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, h.sendBuf),
		conn: conn,
	}
}

// Register adds a client to the active set.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// Unregister removes a client and closes its Send channel. Safe to call more
// than once or with a client the hub never saw.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
}

// Broadcast sends an event to every active client. A client whose send buffer
// is full is treated as dead and removed from the active set; its failure
// never blocks delivery to the others.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket: failed to marshal event")
		return
	}

	var dead []*Client

	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			dead = append(dead, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range dead {
		h.logger.Warn().Str("client_id", client.ID).Msg("websocket: dropping stalled subscriber")
		h.Unregister(client)
	}
}

// Publish implements Publisher by broadcasting the event to all clients.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event)
	return nil
}

// ClientCount returns the number of active subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ---------------------------------------------------------------------------
// Handler — Echo HTTP handler for WebSocket connections
// ---------------------------------------------------------------------------

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler upgrades HTTP connections and pumps signals to subscribers.
type Handler struct {
	hub *Hub
}

// NewHandler creates a handler bound to the given Hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes registers the WebSocket endpoint on the provided Echo group.
func (wsh *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/queue/ws", wsh.HandleConnect)
}

// HandleConnect upgrades an HTTP connection to WebSocket, registers the
// client with the hub, and starts read/write pumps.
func (wsh *Handler) HandleConnect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := wsh.hub.NewClient(&gorillaConnAdapter{ws})
	wsh.hub.Register(client)

	go wsh.writePump(client)
	go wsh.readPump(client)

	return nil
}

// readPump drains inbound frames so pings and close frames are processed;
// any read error tears the client down.
func (wsh *Handler) readPump(client *Client) {
	defer func() {
		wsh.hub.Unregister(client)
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump writes signals from the Send channel to the connection. A write
// failure unregisters the client.
func (wsh *Handler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			wsh.hub.Unregister(client)
			break
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
