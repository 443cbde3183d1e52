package server

import (
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RoomRegistry remembers which sessions announced which rooms. It is bounded:
// the least recently joined room is forgotten once capacity is reached.
// Membership is informational only; delivery ignores it.
type RoomRegistry struct {
	mu    sync.Mutex
	rooms *lru.Cache[string, map[string]struct{}]
	log   *slog.Logger
}

func NewRoomRegistry(capacity int, log *slog.Logger) (*RoomRegistry, error) {
	rooms, err := lru.NewWithEvict[string, map[string]struct{}](capacity, func(roomID string, members map[string]struct{}) {
		log.Debug(fmt.Sprintf("Evicted room %s with %d members", roomID, len(members)))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room registry: %w", err)
	}
	return &RoomRegistry{rooms: rooms, log: log}, nil
}

// Join records sessionID in roomID and returns the member count
func (r *RoomRegistry) Join(roomID, sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms.Get(roomID)
	if !ok {
		members = make(map[string]struct{})
		r.rooms.Add(roomID, members)
		r.log.Info("Created new room", "room", roomID)
	}
	members[sessionID] = struct{}{}
	return len(members)
}

// Leave removes sessionID from every room, forgetting rooms left empty
func (r *RoomRegistry) Leave(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, roomID := range r.rooms.Keys() {
		members, ok := r.rooms.Peek(roomID)
		if !ok {
			continue
		}
		delete(members, sessionID)
		if len(members) == 0 {
			r.rooms.Remove(roomID)
		}
	}
}

// Snapshot returns member counts keyed by room
func (r *RoomRegistry) Snapshot() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]int, r.rooms.Len())
	for _, roomID := range r.rooms.Keys() {
		if members, ok := r.rooms.Peek(roomID); ok {
			out[roomID] = len(members)
		}
	}
	return out
}
