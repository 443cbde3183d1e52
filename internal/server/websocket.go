package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yourusername/duochat/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second    //time allowed to read the next pong message from client
	pingPeriod     = (pongWait * 9) / 10 //send pings to client with this period. must be less than pongWait
	maxMessageSize = 8192
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{ //upgrade HTTP connections to WebSocket connections
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client represents one connected chat session
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	log  *slog.Logger
}

// HandleWebSocket upgrades the request and starts the session pumps
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade error", "error", err)
		return
	}

	id := uuid.New().String()
	client := &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		log:  s.log.With("session", id),
	}
	s.hub.Register(client)

	go client.writePump()
	go client.readPump(s)
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump(s *Server) {
	defer func() {
		s.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("WebSocket error", "error", err)
			}
			break
		}

		s.handleMessage(c, message)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message, one envelope per line
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming envelopes from a session
func (s *Server) handleMessage(c *Client, data []byte) {
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		c.log.Warn("Error decoding message", "error", err)
		s.replyError(c, "malformed message")
		return
	}

	switch msg.Type {
	case protocol.MsgJoinRoom:
		var payload protocol.JoinRoomPayload
		if err := msg.DecodePayload(&payload); err != nil {
			c.log.Warn("Error unmarshaling join room payload", "error", err)
			s.replyError(c, "malformed join_room payload")
			return
		}

		roomID := strings.TrimSpace(payload.RoomID)
		if roomID == "" {
			s.replyError(c, "room_id is required")
			return
		}

		members := s.rooms.Join(roomID, c.ID)
		c.log.Info(fmt.Sprintf("Session joined room %s (=%d)", roomID, members))

		joined, _ := protocol.EncodeMessage(protocol.MsgRoomJoined, protocol.RoomJoinedPayload{
			RoomID:    roomID,
			SessionID: c.ID,
		})
		s.hub.SendTo(c, joined)

	case protocol.MsgSendMessage:
		var payload protocol.ChatPayload
		if err := msg.DecodePayload(&payload); err != nil {
			c.log.Warn("Error unmarshaling send message payload", "error", err)
			s.replyError(c, "malformed send_message payload")
			return
		}

		if err := s.validateChat(payload); err != nil {
			c.log.Debug("Rejected chat message", "error", err)
			s.replyError(c, err.Error())
			return
		}

		// Rooms never partition delivery: every other session gets it
		out, err := protocol.EncodeMessage(protocol.MsgReceiveMessage, payload)
		if err != nil {
			return
		}
		s.hub.Broadcast(c, out)

	default:
		c.log.Debug("Unhandled message type", "type", msg.Type)
		s.replyError(c, fmt.Sprintf("unsupported message type %q", msg.Type))
	}
}

func (s *Server) replyError(c *Client, message string) {
	errMsg, _ := protocol.EncodeMessage(protocol.MsgError, protocol.ErrorPayload{Message: message})
	s.hub.SendTo(c, errMsg)
}
