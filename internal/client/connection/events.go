package connection

// Event represents events from the connection manager
type Event interface {
	isEvent()
}

// ConnectedEvent is sent when connection is established
type ConnectedEvent struct{}

func (ConnectedEvent) isEvent() {}

// DisconnectedEvent is sent when connection is lost
type DisconnectedEvent struct {
	Error error
}

func (DisconnectedEvent) isEvent() {}

// ErrorEvent is sent when the server rejects something we sent
type ErrorEvent struct {
	Message string
}

func (ErrorEvent) isEvent() {}

// RoomJoinedEvent confirms a join_room
type RoomJoinedEvent struct {
	RoomID    string
	SessionID string
}

func (RoomJoinedEvent) isEvent() {}
