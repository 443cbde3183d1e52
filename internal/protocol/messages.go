package protocol // wire envelope shared by the relay server and the chat client

import (
	"encoding/json"
	"fmt"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client -> Server
	MsgJoinRoom    MessageType = "join_room"
	MsgSendMessage MessageType = "send_message"

	// Server -> Client
	MsgRoomJoined     MessageType = "room_joined"
	MsgReceiveMessage MessageType = "receive_message"
	MsgError          MessageType = "error"
)

// Message is the wrapper for all WebSocket messages
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JoinRoomPayload is sent once per room at client startup
type JoinRoomPayload struct {
	RoomID string `json:"room_id"`
}

// RoomJoinedPayload confirms a join and hands back the server-side session id
type RoomJoinedPayload struct {
	RoomID    string `json:"room_id"`
	SessionID string `json:"session_id"`
}

// ChatPayload carries one chat entry in both directions
// (send_message from the client, receive_message from the server)
type ChatPayload struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Message string `json:"message"`
}

// EncodeMessage encodes a message with its payload
func EncodeMessage(msgType MessageType, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}

	msg := Message{
		Type:    msgType,
		Payload: payloadBytes,
	}

	return json.Marshal(msg)
}

// DecodeMessage decodes a message
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &msg, nil
}

// DecodePayload unmarshals the envelope payload into v
func (m *Message) DecodePayload(v interface{}) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}
