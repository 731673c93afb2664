package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// Server to client message types
const (
	MessageTypeMapInit        = "map_init"
	MessageTypeMarkerAdd      = "marker_add"
	MessageTypeMarkerUpdate   = "marker_update"
	MessageTypeMarkerRemove   = "marker_remove"
	MessageTypeHeatReplace    = "heat_replace"
	MessageTypeHeatVisibility = "heat_visibility"
	MessageTypeHighlightSet   = "highlight_set"
	MessageTypeHighlightClear = "highlight_clear"
	MessageTypeViewSet        = "view_set"
	MessageTypeSnapshot       = "snapshot"
	MessageTypeError          = "error"
)

// Client to server message types
const (
	MessageTypeSelectFlight = "select_flight"
	MessageTypeToggleRow    = "toggle_row"
	MessageTypeMapClick     = "map_click"
	MessageTypeSetHeatmap   = "set_heatmap"
	MessageTypeSyncRequest  = "sync_request"
)

// Frame encodings a client can ask for with ?encoding=
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
)

// Message represents a WebSocket message
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// MessageHandler defines the interface for handling incoming WebSocket messages
type MessageHandler interface {
	HandleMessage(client *Client, messageType string, data map[string]any) error
}

// ConnectHandler returns the messages a newly registered client must receive first
type ConnectHandler func() []*Message

// Client represents a WebSocket client
type Client struct {
	conn       *websocket.Conn
	send       chan *Message // sized by the hub on registration
	server     *Server
	encoding   string
	mu         sync.Mutex
	closed     bool
	closeChan  chan struct{}
	registered chan struct{}
}

// Server represents a WebSocket server
type Server struct {
	clients        map[*Client]bool
	register       chan *Client
	unregister     chan *Client
	resync         chan *Client
	broadcast      chan *Message
	upgrader       websocket.Upgrader
	logger         *logger.Logger
	mu             sync.RWMutex
	messageHandler MessageHandler // Handler for incoming messages
	connectHandler ConnectHandler // Replay for new clients
	done           chan struct{}
}

// NewServer creates a new WebSocket server
func NewServer(logger *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		resync:     make(chan *Client),
		broadcast:  make(chan *Message, sendBufferSize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger: logger.Named("web-socket"),
		done:   make(chan struct{}),
	}
}

// SetMessageHandler sets the message handler for incoming WebSocket messages
func (s *Server) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

// SetConnectHandler sets the replay source for newly connected clients
func (s *Server) SetConnectHandler(handler ConnectHandler) {
	s.connectHandler = handler
}

// Run starts the WebSocket hub and blocks until ctx is cancelled
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket server")
	defer close(s.done)

	for {
		select {
		case client := <-s.register:
			// Queue the replay before any later broadcast reaches this client
			var replay []*Message
			if s.connectHandler != nil {
				replay = s.connectHandler()
			}
			client.send = make(chan *Message, len(replay)+sendBufferSize)
			for _, msg := range replay {
				client.send <- msg
			}

			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			close(client.registered)

			s.logger.Debug("Client registered",
				Int("client_count", clientCount),
				Int("replayed", len(replay)))

		case client := <-s.resync:
			if s.connectHandler == nil {
				continue
			}
			for _, msg := range s.connectHandler() {
				if !client.SendMessage(msg) {
					s.removeClient(client)
					break
				}
			}

		case client := <-s.unregister:
			s.removeClient(client)
			s.logger.Debug("Client unregistered", Int("client_count", s.ClientCount()))

		case message := <-s.broadcast:
			s.mu.RLock()
			clientsToRemove := make([]*Client, 0)
			for client := range s.clients {
				if !client.SendMessage(message) {
					// Closed or too slow to keep up
					clientsToRemove = append(clientsToRemove, client)
				}
			}
			s.mu.RUnlock()

			for _, client := range clientsToRemove {
				s.removeClient(client)
			}

		case <-ctx.Done():
			s.mu.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				client.markClosed()
			}
			s.mu.Unlock()
			s.logger.Info("WebSocket server stopped")
			return
		}
	}
}

func (s *Server) removeClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		client.markClosed()
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleConnection handles a WebSocket connection
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	encoding := EncodingJSON
	if r.URL.Query().Get("encoding") == EncodingMsgpack {
		encoding = EncodingMsgpack
	}

	s.logger.Info("Handling new WebSocket connection request",
		String("remote_addr", r.RemoteAddr),
		String("encoding", encoding))

	// Upgrade HTTP connection to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			Error(err),
			String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		conn:       conn,
		server:     s,
		encoding:   encoding,
		closeChan:  make(chan struct{}),
		registered: make(chan struct{}),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}
	<-client.registered

	go client.readPump()
	go client.writePump()
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(message *Message) {
	select {
	case s.broadcast <- message:
	case <-s.done:
	}
}

// Resync queues a fresh replay for one client, ordered with respect to broadcasts
func (s *Server) Resync(client *Client) {
	select {
	case s.resync <- client:
	case <-s.done:
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", Error(err))
			}
			return
		}

		var message struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.server.logger.Warn("Failed to parse WebSocket message", Error(err))
			continue
		}

		c.server.logger.Debug("Received WebSocket message",
			String("type", message.Type),
			String("client", c.conn.RemoteAddr().String()))

		if c.server.messageHandler != nil {
			if err := c.server.messageHandler.HandleMessage(c, message.Type, message.Data); err != nil {
				c.server.logger.Debug("Failed to handle WebSocket message",
					Error(err),
					String("type", message.Type))
				c.SendMessage(&Message{
					Type: MessageTypeError,
					Data: map[string]any{"request": message.Type, "error": err.Error()},
				})
			}
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			frameType, data, err := encodeMessage(message, c.encoding)
			if err != nil {
				c.server.logger.Error("Failed to encode message", Error(err), String("message_type", message.Type))
				continue
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(frameType, data); err != nil {
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// encodeMessage renders a message in the client's encoding. MessagePack frames carry the
// same document as the JSON ones, so they are built from the JSON form.
func encodeMessage(message *Message, encoding string) (int, []byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	if encoding != EncodingMsgpack {
		return websocket.TextMessage, data, nil
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return 0, nil, fmt.Errorf("failed to normalize message: %w", err)
	}
	packed, err := msgpack.Marshal(generic)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to pack message: %w", err)
	}
	return websocket.BinaryMessage, packed, nil
}

// markClosed closes the send channel exactly once
func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.closeChan)
	c.conn.Close()
}

// SendMessage sends a message to this specific client. It reports false when the
// client is closed or its queue is full.
func (c *Client) SendMessage(message *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Encoding returns the frame encoding negotiated by the client
func (c *Client) Encoding() string {
	return c.encoding
}

// Import logger functions
var (
	String = logger.String
	Int    = logger.Int
	Error  = logger.Error
)
