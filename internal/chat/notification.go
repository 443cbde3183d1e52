package chat

import "sync"

// Notification fans a value out to every subscribed channel.
// A subscriber whose buffer is full misses that value instead of stalling the sender.
type Notification[T any] struct {
	subscribers map[chan T]struct{}
	mutex       sync.RWMutex
}

func NewNotification[T any]() *Notification[T] {
	return &Notification[T]{
		subscribers: map[chan T]struct{}{},
	}
}

// NotifyAll returns how many subscribers missed the value.
func (n *Notification[T]) NotifyAll(value T) int {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	dropped := 0
	for subscriber := range n.subscribers {
		select {
		case subscriber <- value:
		default:
			dropped++
		}
	}
	return dropped
}

func (n *Notification[T]) Subscribe(subscriber chan T) int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.subscribers[subscriber] = struct{}{}

	return len(n.subscribers)
}

// Unsubscribe removes and closes the channel. Closing happens under the lock
// so NotifyAll never sends on a closed channel.
func (n *Notification[T]) Unsubscribe(subscriber chan T) int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if _, ok := n.subscribers[subscriber]; ok {
		delete(n.subscribers, subscriber)
		close(subscriber)
	}

	return len(n.subscribers)
}

func (n *Notification[T]) Len() int {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return len(n.subscribers)
}
