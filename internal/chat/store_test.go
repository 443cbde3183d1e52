package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/duochat/internal/storage"
)

type fakeTransport struct {
	mu        sync.Mutex
	rooms     []string
	sent      []Message
	callbacks map[int]func(Message)
	nextID    int
	sendErr   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{callbacks: map[int]func(Message){}}
}

func (f *fakeTransport) JoinRoom(roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, roomID)
	return nil
}

func (f *fakeTransport) SendMessage(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.sendErr
}

func (f *fakeTransport) OnReceiveMessage(callback func(Message)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.callbacks[id] = callback
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.callbacks, id)
	}
}

func (f *fakeTransport) deliver(msg Message) {
	f.mu.Lock()
	callbacks := make([]func(Message), 0, len(f.callbacks))
	for _, cb := range f.callbacks {
		callbacks = append(callbacks, cb)
	}
	f.mu.Unlock()
	for _, cb := range callbacks {
		cb(msg)
	}
}

type failingKV struct{ *storage.Memory }

func (failingKV) Put(string, []byte) error { return errors.New("disk full") }

func persisted(t *testing.T, kv storage.KV) []Message {
	t.Helper()
	raw, err := kv.Get(FeedKey)
	require.NoError(t, err)
	var feed []Message
	require.NoError(t, json.Unmarshal(raw, &feed))
	return feed
}

func newTestStore() (*Store, *storage.Memory, *fakeTransport) {
	kv := storage.NewMemory()
	transport := newFakeTransport()
	store := NewStore(kv, transport, slog.Default())
	store.Initialize()
	return store, kv, transport
}

func TestStore_SubmitAppendsPersistsAndBroadcasts(t *testing.T) {
	req := require.New(t)
	store, kv, transport := newTestStore()

	err := store.Submit(Message{Username: "alice", Message: "🔥 hi"})
	req.NoError(err)

	want := []Message{{Username: "alice", Message: "🔥 hi"}}
	req.Equal(want, store.Messages())
	req.Equal(want, persisted(t, kv))
	req.Equal(want, transport.sent)
}

func TestStore_SubmitGrowsByOnePerCallInOrder(t *testing.T) {
	req := require.New(t)
	store, _, _ := newTestStore()

	for i, body := range []string{"one", "two", "three", "four"} {
		req.NoError(store.Submit(Message{Username: "alice", Message: body}))
		req.Equal(i+1, store.Len())
	}
	feed := store.Messages()
	req.Equal("one", feed[0].Message)
	req.Equal("four", feed[3].Message)
}

func TestStore_SubmitBlankUsernameNeverMutates(t *testing.T) {
	req := require.New(t)
	store, kv, transport := newTestStore()
	req.NoError(store.Submit(Message{Username: "alice", Message: "🔥 hi"}))

	for _, username := range []string{"", " ", "\t\n"} {
		err := store.Submit(Message{Username: username, Message: " hello"})
		req.ErrorIs(err, ErrEmptyUsername)
	}

	req.Equal(1, store.Len())
	req.Len(persisted(t, kv), 1)
	req.Len(transport.sent, 1)
}

func TestStore_SubmitBlankBody(t *testing.T) {
	req := require.New(t)
	store, kv, transport := newTestStore()

	err := store.Submit(Message{Username: "alice", Message: "   "})
	req.ErrorIs(err, ErrEmptyMessage)
	req.Zero(store.Len())
	raw, _ := kv.Get(FeedKey)
	req.Nil(raw)
	req.Empty(transport.sent)
}

func TestStore_RemoteMessageAppendsAndPersists(t *testing.T) {
	req := require.New(t)
	store, kv, transport := newTestStore()
	detach := store.Attach()
	defer detach()

	req.NoError(store.Submit(Message{Username: "alice", Message: "🔥 hi"}))
	transport.deliver(Message{Username: "bob", Message: "yo"})

	feed := store.Messages()
	req.Len(feed, 2)
	req.Equal(Message{Username: "bob", Message: "yo"}, feed[1])
	req.Equal(feed, persisted(t, kv))
	// Remote messages are not rebroadcast.
	req.Len(transport.sent, 1)
}

func TestStore_DetachUnregistersCallback(t *testing.T) {
	req := require.New(t)
	store, _, transport := newTestStore()

	detach := store.Attach()
	detach()
	detach()
	transport.deliver(Message{Username: "bob", Message: "yo"})

	req.Zero(store.Len())
	req.Empty(transport.callbacks)
}

func TestStore_EchoIsNotDeduplicated(t *testing.T) {
	req := require.New(t)
	store, _, transport := newTestStore()
	defer store.Attach()()

	msg := Message{Username: "alice", Message: "🔥 hi"}
	req.NoError(store.Submit(msg))
	transport.deliver(msg)

	req.Equal([]Message{msg, msg}, store.Messages())
}

func TestStore_InitializeRestoresPersistedFeed(t *testing.T) {
	req := require.New(t)
	store, kv, _ := newTestStore()
	req.NoError(store.Submit(Message{Username: "alice", Message: "🔥 hi"}))
	req.NoError(store.Append(Message{Username: "bob", Message: "yo"}))
	before := store.Messages()

	reloaded := NewStore(kv, nil, slog.Default())
	reloaded.Initialize()
	req.Equal(before, reloaded.Messages())
}

func TestStore_InitializeMissingKeyStartsEmpty(t *testing.T) {
	req := require.New(t)
	kv := storage.NewMemory()

	store := NewStore(kv, nil, slog.Default())
	store.Initialize()
	req.Empty(store.Messages())

	raw, err := kv.Get(FeedKey)
	req.NoError(err)
	req.Nil(raw)
}

func TestStore_InitializeMalformedStartsEmpty(t *testing.T) {
	req := require.New(t)
	kv := storage.NewMemory()
	req.NoError(kv.Put(FeedKey, []byte("{not a list")))

	store := NewStore(kv, nil, slog.Default())
	store.Initialize()
	req.Zero(store.Len())

	req.NoError(store.Append(Message{Username: "bob", Message: "yo"}))
	req.Equal([]Message{{Username: "bob", Message: "yo"}}, persisted(t, kv))
}

func TestStore_PersistFailureKeepsMemoryAndStillBroadcasts(t *testing.T) {
	req := require.New(t)
	transport := newFakeTransport()
	store := NewStore(failingKV{storage.NewMemory()}, transport, slog.Default())
	store.Initialize()

	req.Error(store.Append(Message{Username: "bob", Message: "yo"}))
	req.NoError(store.Submit(Message{Username: "alice", Message: "hi"}))
	req.Equal(2, store.Len())
	req.Len(transport.sent, 1)
}

func TestStore_TransportFailureIsNotSurfaced(t *testing.T) {
	req := require.New(t)
	store, _, transport := newTestStore()
	transport.sendErr = errors.New("socket closed")

	req.NoError(store.Submit(Message{Username: "alice", Message: "hi"}))
	req.Equal(1, store.Len())
}

func TestStore_SubscribersSeeEveryAppend(t *testing.T) {
	req := require.New(t)
	store, _, transport := newTestStore()
	defer store.Attach()()

	blue := store.Subscribe(4)
	red := store.Subscribe(4)
	defer blue.Close()
	defer red.Close()

	req.NoError(store.Submit(Message{Username: "alice", Message: "hi"}))
	transport.deliver(Message{Username: "bob", Message: "yo"})

	for _, sub := range []*Subscription{blue, red} {
		for _, want := range []string{"hi", "yo"} {
			select {
			case got := <-sub.C:
				req.Equal(want, got.Message)
			case <-time.After(time.Second):
				req.Fail("subscriber did not receive append")
			}
		}
	}
}

func TestStore_SubscriptionCloseIsIdempotent(t *testing.T) {
	req := require.New(t)
	store, _, _ := newTestStore()

	sub := store.Subscribe(1)
	sub.Close()
	sub.Close()

	_, ok := <-sub.C
	req.False(ok)
	req.NoError(store.Append(Message{Username: "bob", Message: "yo"}))
	req.Zero(store.notification.Len())
}

func TestStore_FullSubscriberDoesNotBlockAppend(t *testing.T) {
	req := require.New(t)
	store, _, _ := newTestStore()
	sub := store.Subscribe(1)
	defer sub.Close()

	for i := 0; i < 5; i++ {
		req.NoError(store.Append(Message{Username: "bob", Message: "yo"}))
	}
	req.Equal(5, store.Len())
	req.Len(sub.C, 1)
}

func TestStore_JoinRooms(t *testing.T) {
	req := require.New(t)
	store, _, transport := newTestStore()

	req.NoError(store.JoinRooms("blue", "red"))
	req.Equal([]string{"blue", "red"}, transport.rooms)
}

func TestStore_ConcurrentAppendsKeepPersistedInSync(t *testing.T) {
	req := require.New(t)
	store, kv, transport := newTestStore()
	defer store.Attach()()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Submit(Message{Username: "alice", Message: "hi"})
		}()
		go func() {
			defer wg.Done()
			transport.deliver(Message{Username: "bob", Message: "yo"})
		}()
	}
	wg.Wait()

	req.Equal(40, store.Len())
	req.Equal(store.Messages(), persisted(t, kv))
}
