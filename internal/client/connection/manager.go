package connection

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourusername/duochat/internal/chat"
	"github.com/yourusername/duochat/internal/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
)

var _ chat.Transport = (*Manager)(nil)

// Manager manages the WebSocket connection to the relay and implements
// chat.Transport on top of it.
type Manager struct {
	serverURL     string
	conn          *websocket.Conn
	eventCallback func(Event)
	connected     bool
	sessionID     string
	mu            sync.RWMutex
	writeMu       sync.Mutex
	done          chan struct{}
	log           *slog.Logger

	callbacksMu sync.RWMutex
	callbacks   map[uint64]func(chat.Message)
	nextID      uint64
}

// NewManager creates a new connection manager
func NewManager(serverURL string, log *slog.Logger) *Manager {
	return &Manager{
		serverURL: serverURL,
		connected: false,
		done:      make(chan struct{}),
		log:       log,
		callbacks: make(map[uint64]func(chat.Message)),
	}
}

// OnEvent sets the callback for events
func (m *Manager) OnEvent(callback func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCallback = callback
}

// Connect establishes a WebSocket connection to the server
func (m *Manager) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, m.serverURL, nil)
	if err != nil {
		m.sendEvent(DisconnectedEvent{Error: err})
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.connected = true
	// Fresh done channel so a later reconnect works
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.readPump(conn)

	m.sendEvent(ConnectedEvent{})
	return nil
}

// Disconnect closes the WebSocket connection
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return
	}
	m.connected = false

	select {
	case <-m.done:
	default:
		close(m.done)
	}

	if m.conn != nil {
		m.writeMu.Lock()
		m.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = m.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		m.writeMu.Unlock()
		m.conn.Close()
	}
}

// IsConnected returns whether the manager is connected
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SessionID is the id the relay assigned on the last room_joined
func (m *Manager) SessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

//// FROM CLIENT -> SERVER MESSAGES ////

// JoinRoom sends a join room request
func (m *Manager) JoinRoom(roomID string) error {
	return m.sendMessage(protocol.MsgJoinRoom, protocol.JoinRoomPayload{
		RoomID: roomID,
	})
}

// SendMessage asks the relay to broadcast msg to every other session
func (m *Manager) SendMessage(msg chat.Message) error {
	return m.sendMessage(protocol.MsgSendMessage, protocol.ChatPayload{
		Message:  msg.Message,
		Username: msg.Username,
	})
}

////////////////////////////////////////////

// OnReceiveMessage registers callback for inbound chat messages. The returned
// func removes exactly this callback.
func (m *Manager) OnReceiveMessage(callback func(chat.Message)) func() {
	m.callbacksMu.Lock()
	id := m.nextID
	m.nextID++
	m.callbacks[id] = callback
	m.callbacksMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.callbacksMu.Lock()
			delete(m.callbacks, id)
			m.callbacksMu.Unlock()
		})
	}
}

func (m *Manager) receivers() []func(chat.Message) {
	m.callbacksMu.RLock()
	defer m.callbacksMu.RUnlock()
	out := make([]func(chat.Message), 0, len(m.callbacks))
	for _, cb := range m.callbacks {
		out = append(out, cb)
	}
	return out
}

// sendMessage sends a message to the server
func (m *Manager) sendMessage(msgType protocol.MessageType, payload interface{}) error {
	m.mu.RLock()
	conn, connected := m.conn, m.connected
	m.mu.RUnlock()

	if !connected || conn == nil {
		return websocket.ErrCloseSent
	}

	msg, err := protocol.EncodeMessage(msgType, payload)
	if err != nil {
		return err
	}

	// gorilla connections allow one concurrent writer
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// readPump reads messages from the WebSocket connection
func (m *Manager) readPump(conn *websocket.Conn) {
	var readErr error
	defer func() {
		m.mu.Lock()
		m.connected = false
		conn.Close()
		m.mu.Unlock()
		m.sendEvent(DisconnectedEvent{Error: readErr})
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-m.done:
				// Disconnect was called
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					m.log.Warn("WebSocket error", "error", err)
				}
				readErr = err
			}
			return
		}

		// The relay may batch several envelopes into one frame
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			if len(line) > 0 {
				m.handleMessage(line)
			}
		}
	}
}

// handleMessage processes incoming messages
func (m *Manager) handleMessage(data []byte) {
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		m.log.Warn("Error decoding message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.MsgReceiveMessage:
		var payload protocol.ChatPayload
		if err := msg.DecodePayload(&payload); err != nil {
			m.log.Warn("Error unmarshaling receive message", "error", err)
			return
		}
		incoming := chat.Message{Message: payload.Message, Username: payload.Username}
		for _, cb := range m.receivers() {
			cb(incoming)
		}

	case protocol.MsgRoomJoined:
		var payload protocol.RoomJoinedPayload
		if err := msg.DecodePayload(&payload); err != nil {
			m.log.Warn("Error unmarshaling room joined", "error", err)
			return
		}
		m.mu.Lock()
		m.sessionID = payload.SessionID
		m.mu.Unlock()
		m.log.Info("Joined room", "room", payload.RoomID, "session", payload.SessionID)
		m.sendEvent(RoomJoinedEvent{RoomID: payload.RoomID, SessionID: payload.SessionID})

	case protocol.MsgError:
		var payload protocol.ErrorPayload
		if err := msg.DecodePayload(&payload); err != nil {
			m.log.Warn("Error unmarshaling error payload", "error", err)
			return
		}
		m.log.Warn("Server error", "message", payload.Message)
		m.sendEvent(ErrorEvent{Message: payload.Message})

	default:
		m.log.Debug("Unhandled message type", "type", msg.Type)
	}
}

// sendEvent sends an event to the callback if set
func (m *Manager) sendEvent(event Event) {
	m.mu.RLock()
	callback := m.eventCallback
	m.mu.RUnlock()

	if callback != nil {
		callback(event)
	}
}
