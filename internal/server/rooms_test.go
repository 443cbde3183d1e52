package server

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomRegistry_JoinAndLeave(t *testing.T) {
	req := require.New(t)
	rooms, err := NewRoomRegistry(8, slog.Default())
	req.NoError(err)

	req.Equal(1, rooms.Join("blue", "s1"))
	req.Equal(2, rooms.Join("blue", "s2"))
	req.Equal(2, rooms.Join("blue", "s2"))
	req.Equal(1, rooms.Join("red", "s1"))

	rooms.Leave("s1")
	req.Equal(map[string]int{"blue": 1}, rooms.Snapshot())
}

func TestRoomRegistry_EvictsLeastRecentRoom(t *testing.T) {
	req := require.New(t)
	rooms, err := NewRoomRegistry(2, slog.Default())
	req.NoError(err)

	rooms.Join("a", "s1")
	rooms.Join("b", "s1")
	rooms.Join("c", "s1")

	snapshot := rooms.Snapshot()
	req.Len(snapshot, 2)
	req.NotContains(snapshot, "a")
}
