package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yourusername/duochat/internal/chat"
	"github.com/yourusername/duochat/internal/client/connection"
)

// connectionSuccessMsg is sent when connection is established
type connectionSuccessMsg struct{}

// connectionErrorMsg is sent when connection fails
type connectionErrorMsg struct {
	err error
}

// retryMsg fires after the backoff delay
type retryMsg struct{}

// connectionEventMsg wraps events from the connection manager
type connectionEventMsg struct {
	event connection.Event
}

// feedUpdatedMsg is sent after the store appended a message
type feedUpdatedMsg struct {
	message chat.Message
}

// feedClosedMsg is sent once the feed subscription is closed
type feedClosedMsg struct{}

// alertMsg asks the model to show a blocking alert
type alertMsg struct {
	title string
	text  string
}

// tickMsg is sent periodically for animations
type tickMsg time.Time

// joinedRoomsMsg reports the outcome of announcing the configured rooms
type joinedRoomsMsg struct {
	err error
}

// connectCmd attempts to connect to the server
func connectCmd(conn Connector) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := conn.Connect(ctx); err != nil {
			return connectionErrorMsg{err: err}
		}
		return connectionSuccessMsg{}
	}
}

// retryConnectCmd waits with exponential backoff before the next attempt
func retryConnectCmd(attempt int) tea.Cmd {
	delay := time.Duration(1<<attempt) * 500 * time.Millisecond
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return retryMsg{}
	})
}

// joinRoomsCmd announces every configured room
func joinRoomsCmd(store *chat.Store, rooms []string) tea.Cmd {
	return func() tea.Msg {
		return joinedRoomsMsg{err: store.JoinRooms(rooms...)}
	}
}

// listenForEventsCmd waits for the next connection event
func listenForEventsCmd(events <-chan connection.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return connectionEventMsg{event: event}
	}
}

// listenForFeedCmd waits for the next feed append
func listenForFeedCmd(sub *chat.Subscription) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-sub.C
		if !ok {
			return feedClosedMsg{}
		}
		return feedUpdatedMsg{message: msg}
	}
}

// listenForAlertsCmd waits for the next alert raised by a panel
func listenForAlertsCmd(alerts <-chan alertMsg) tea.Cmd {
	return func() tea.Msg {
		return <-alerts
	}
}

// tickCmd returns a command that sends tick messages for animations
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
