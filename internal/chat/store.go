package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yourusername/duochat/internal/storage"
)

// FeedKey is the key-value slot holding the serialised feed.
const FeedKey = "messages"

// Store keeps the one feed shared by every panel, mirrors it to kv on each
// append and forwards local submissions through the transport.
type Store struct {
	kv        storage.KV
	transport Transport
	log       *slog.Logger

	mu   sync.Mutex
	feed []Message

	notification *Notification[Message]
}

func NewStore(kv storage.KV, transport Transport, log *slog.Logger) *Store {
	return &Store{
		kv:           kv,
		transport:    transport,
		log:          log,
		feed:         make([]Message, 0),
		notification: NewNotification[Message](),
	}
}

// Initialize rehydrates the feed from kv. A missing or malformed value starts
// an empty feed.
func (s *Store) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feed = make([]Message, 0)

	raw, err := s.kv.Get(FeedKey)
	if err != nil {
		s.log.Warn("Failed to read persisted feed", "key", FeedKey, "error", err)
		return
	}
	if raw == nil {
		return
	}

	var persisted []Message
	if err := json.Unmarshal(raw, &persisted); err != nil {
		s.log.Warn("Ignoring malformed persisted feed", "key", FeedKey, "error", err)
		return
	}
	if persisted != nil {
		s.feed = persisted
	}
	s.log.Debug(fmt.Sprintf("Restored %d messages", len(s.feed)))
}

// Append adds msg to the end of the feed and overwrites the persisted copy
// with the full feed. The in-memory append stands even if the write fails.
func (s *Store) Append(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feed = append(s.feed, msg)
	err := s.persist()
	if err != nil {
		s.log.Error("Failed to persist feed", "key", FeedKey, "error", err)
	}

	if dropped := s.notification.NotifyAll(msg); dropped > 0 {
		s.log.Debug("Feed subscribers missed an update", "dropped", dropped)
	}
	return err
}

func (s *Store) persist() error {
	data, err := json.Marshal(s.feed)
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	if err := s.kv.Put(FeedKey, data); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	return nil
}

// Submit validates msg, appends it locally and broadcasts it. A validation
// error aborts with no append and no broadcast. Persistence and transport
// failures are logged only.
func (s *Store) Submit(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	_ = s.Append(msg)

	if s.transport == nil {
		return nil
	}
	if err := s.transport.SendMessage(msg); err != nil {
		s.log.Error("Failed to broadcast message", "username", msg.Username, "error", err)
	}
	return nil
}

// OnRemoteMessage appends a message delivered by the transport. Echoes of our
// own submissions are not filtered.
func (s *Store) OnRemoteMessage(msg Message) {
	_ = s.Append(msg)
}

// Attach starts listening on the transport. The returned func detaches.
func (s *Store) Attach() (detach func()) {
	if s.transport == nil {
		return func() {}
	}
	return s.transport.OnReceiveMessage(s.OnRemoteMessage)
}

// JoinRooms announces each room to the transport. Rooms do not partition the
// feed; every room shares it.
func (s *Store) JoinRooms(rooms ...string) error {
	if s.transport == nil {
		return nil
	}
	var errs []error
	for _, room := range rooms {
		if err := s.transport.JoinRoom(room); err != nil {
			errs = append(errs, fmt.Errorf("join room %q: %w", room, err))
		}
	}
	return errors.Join(errs...)
}

// Messages returns a copy of the feed.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.feed))
	copy(out, s.feed)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feed)
}

// Subscription delivers every message appended after it was opened.
type Subscription struct {
	C <-chan Message

	ch           chan Message
	notification *Notification[Message]
	once         sync.Once
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.notification.Unsubscribe(sub.ch)
	})
}

// Subscribe opens a subscription with the given channel buffer. When the
// buffer is full further appends are skipped for this subscriber; callers
// re-read Messages on the next delivery.
func (s *Store) Subscribe(buffer int) *Subscription {
	ch := make(chan Message, buffer)
	n := s.notification.Subscribe(ch)
	s.log.Debug(fmt.Sprintf("+1 feed subscription (=%d)", n))
	return &Subscription{C: ch, ch: ch, notification: s.notification}
}
