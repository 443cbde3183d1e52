package chat

// Transport is the real-time messaging collaborator the store publishes
// through and listens on. Implementations decide how delivery works.
type Transport interface {
	JoinRoom(roomID string) error
	SendMessage(msg Message) error
	// OnReceiveMessage registers callback for every inbound message.
	// The returned func unregisters that same callback and is safe to call twice.
	OnReceiveMessage(callback func(Message)) (unsubscribe func())
}
