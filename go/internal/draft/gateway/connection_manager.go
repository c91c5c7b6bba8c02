package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections for draft events
type ConnectionManager struct {
	// Connection pools organized by draft ID
	draftConnections map[uuid.UUID]map[*Connection]bool
	mu               sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	// One loop drains this channel, so each draft's events reach clients in
	// the order they were broadcast.
	broadcastCh chan BroadcastMessage

	commands CommandHandler
}

// CommandHandler executes a command sent by a client on its draft socket.
type CommandHandler interface {
	HandleCommand(ctx context.Context, conn *Connection, msg ClientMessage) error
}

// ClientMessage is a command sent by a client.
type ClientMessage struct {
	Type     string    `json:"type"`
	TeamID   uuid.UUID `json:"team_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	UserID  string
	DraftID uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to connections
type BroadcastMessage struct {
	DraftID uuid.UUID
	Event   *DraftEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		draftConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetCommandHandler installs the handler for client commands.
func (cm *ConnectionManager) SetCommandHandler(h CommandHandler) {
	cm.commands = h
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket. The
// connection is registered before snapshot is called, and snapshot's frame
// is written before any broadcast event, so the client misses nothing.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, draftID uuid.UUID, snapshot func(context.Context) (*DraftEvent, error)) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		DraftID:     draftID,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(connection)

	if snapshot != nil {
		event, err := snapshot(r.Context())
		if err == nil {
			err = connection.writeEvent(event)
		}
		if err != nil {
			log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to send draft snapshot")
			cm.unregisterConnection(connection)
			conn.Close()
			return nil
		}
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("draft_id", draftID.String()).
		Msg("WebSocket connection established")
	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.draftConnections[conn.DraftID] == nil {
		cm.draftConnections[conn.DraftID] = make(map[*Connection]bool)
	}
	cm.draftConnections[conn.DraftID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("draft_id", conn.DraftID.String()).
		Int("total_connections", len(cm.draftConnections[conn.DraftID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.draftConnections[conn.DraftID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)

			if len(connections) == 0 {
				delete(cm.draftConnections, conn.DraftID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Str("draft_id", conn.DraftID.String()).
				Msg("connection unregistered")
		}
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.Lock()
	var all []*Connection
	for _, connections := range cm.draftConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.Unlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// Broadcast queues an event for every connection of a draft, waiting for
// room in the queue until ctx is done.
func (cm *ConnectionManager) Broadcast(ctx context.Context, draftID uuid.UUID, event *DraftEvent) error {
	select {
	case cm.broadcastCh <- BroadcastMessage{DraftID: draftID, Event: event}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendTo queues an event for a single connection.
func (cm *ConnectionManager) SendTo(conn *Connection, event *DraftEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.draftConnections[conn.DraftID][conn] {
		return
	}
	select {
	case conn.Send <- data:
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, dropping reply")
	}
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Sends happen under the read lock so no Send channel is closed
	// mid-broadcast; slow connections are dropped afterwards.
	var slow []*Connection
	cm.mu.RLock()
	connections := cm.draftConnections[message.DraftID]
	delivered := 0
	for conn := range connections {
		select {
		case conn.Send <- eventData:
			delivered++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("draft_id", message.DraftID.String()).
		Int("connections", delivered).
		Msg("event broadcasted")
}

// ConnectionStats describes the open connections
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveDrafts     int            `json:"active_drafts"`
	DraftConnections map[string]int `json:"draft_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveDrafts:     len(cm.draftConnections),
		DraftConnections: make(map[string]int, len(cm.draftConnections)),
	}
	for draftID, connections := range cm.draftConnections {
		stats.TotalConnections += len(connections)
		stats.DraftConnections[draftID.String()] = len(connections)
	}
	return stats
}

func (c *Connection) writeEvent(event *DraftEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage runs a client command and reports failures back to
// that client only.
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.Manager.SendTo(c, errorEvent(c.DraftID, "invalid_argument", "malformed message"))
		return
	}
	if c.Manager.commands == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.WriteTimeout)
	defer cancel()
	if err := c.Manager.commands.HandleCommand(ctx, c, msg); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Str("type", msg.Type).
			Msg("client command rejected")
		c.Manager.SendTo(c, errorEvent(c.DraftID, errorCode(err), err.Error()))
	}
}

func errorEvent(draftID uuid.UUID, code, message string) *DraftEvent {
	data, _ := json.Marshal(ErrorPayload{Code: code, Message: message})
	return &DraftEvent{
		ID:        uuid.New().String(),
		DraftID:   draftID.String(),
		Type:      EventTypeError,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
