package connection

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/duochat/internal/chat"
	"github.com/yourusername/duochat/internal/server"
	"github.com/yourusername/duochat/internal/storage"
)

func startRelay(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv, err := server.NewServer(slog.Default(), server.Options{MaxMessageLength: 200, RoomCapacity: 8})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventLog) record(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventLog) has(match func(Event) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.events {
		if match(ev) {
			return true
		}
	}
	return false
}

func connect(t *testing.T, url string) (*Manager, *eventLog) {
	t.Helper()
	events := &eventLog{}
	m := NewManager(url, slog.Default())
	m.OnEvent(events.record)
	require.NoError(t, m.Connect(context.Background()))
	t.Cleanup(m.Disconnect)
	return m, events
}

func TestManager_JoinRoomEmitsEvent(t *testing.T) {
	req := require.New(t)
	m, events := connect(t, startRelay(t))

	req.True(m.IsConnected())
	req.NoError(m.JoinRoom("blue"))
	req.Eventually(func() bool {
		return events.has(func(ev Event) bool {
			joined, ok := ev.(RoomJoinedEvent)
			return ok && joined.RoomID == "blue"
		})
	}, 2*time.Second, 10*time.Millisecond)
	req.NotEmpty(m.SessionID())
}

func TestManager_ServerErrorEmitsEvent(t *testing.T) {
	req := require.New(t)
	m, events := connect(t, startRelay(t))

	req.NoError(m.SendMessage(chat.Message{Username: "", Message: "hi"}))
	req.Eventually(func() bool {
		return events.has(func(ev Event) bool {
			_, ok := ev.(ErrorEvent)
			return ok
		})
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_DeliversToRegisteredCallbacksOnly(t *testing.T) {
	req := require.New(t)
	url := startRelay(t)
	alice, _ := connect(t, url)
	bob, bobEvents := connect(t, url)

	// Make sure bob is registered with the relay before alice sends.
	req.NoError(bob.JoinRoom("red"))
	req.Eventually(func() bool {
		return bobEvents.has(func(ev Event) bool { _, ok := ev.(RoomJoinedEvent); return ok })
	}, 2*time.Second, 10*time.Millisecond)

	received := make(chan chat.Message, 4)
	stale := make(chan chat.Message, 4)
	unsubscribe := bob.OnReceiveMessage(func(msg chat.Message) { received <- msg })
	removed := bob.OnReceiveMessage(func(msg chat.Message) { stale <- msg })
	removed()
	removed()
	defer unsubscribe()

	req.NoError(alice.SendMessage(chat.Message{Username: "alice", Message: "🔥 hi"}))

	select {
	case msg := <-received:
		req.Equal(chat.Message{Username: "alice", Message: "🔥 hi"}, msg)
	case <-time.After(2 * time.Second):
		req.Fail("bob did not receive the message")
	}
	req.Empty(stale)
}

func TestManager_SendAfterDisconnectFails(t *testing.T) {
	req := require.New(t)
	m, events := connect(t, startRelay(t))

	m.Disconnect()
	req.False(m.IsConnected())
	req.Error(m.SendMessage(chat.Message{Username: "alice", Message: "hi"}))
	req.Eventually(func() bool {
		return events.has(func(ev Event) bool { _, ok := ev.(DisconnectedEvent); return ok })
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_TwoSessionsShareFeedThroughStores(t *testing.T) {
	req := require.New(t)
	url := startRelay(t)

	newSession := func() (*chat.Store, *eventLog) {
		m, events := connect(t, url)
		store := chat.NewStore(storage.NewMemory(), m, slog.Default())
		store.Initialize()
		t.Cleanup(store.Attach())
		req.NoError(store.JoinRooms("blue", "red"))
		return store, events
	}
	first, firstEvents := newSession()
	second, secondEvents := newSession()
	for _, events := range []*eventLog{firstEvents, secondEvents} {
		req.Eventually(func() bool {
			return events.has(func(ev Event) bool {
				joined, ok := ev.(RoomJoinedEvent)
				return ok && joined.RoomID == "red"
			})
		}, 2*time.Second, 10*time.Millisecond)
	}

	req.NoError(first.Submit(chat.Message{Username: "alice", Message: "🔥 hi"}))
	req.Eventually(func() bool { return second.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	req.NoError(second.Submit(chat.Message{Username: "bob", Message: "yo"}))
	req.Eventually(func() bool { return first.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	req.Equal(first.Messages(), second.Messages())
}
