package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yourusername/duochat/internal/chat"
	"github.com/yourusername/duochat/internal/client/connection"
	"github.com/yourusername/duochat/internal/client/panel"
)

// ViewState represents the current view in the TUI
type ViewState int

const (
	ViewLoading ViewState = iota
	ViewChat
)

const feedBuffer = 64

// Connector is the part of the connection manager the UI drives
type Connector interface {
	Connect(ctx context.Context) error
	IsConnected() bool
}

type Options struct {
	Store     *chat.Store
	Conn      Connector
	Events    <-chan connection.Event
	Rooms     []string
	ServerURL string
	Log       *slog.Logger
}

// Model is the main Bubble Tea model
type Model struct {
	viewState ViewState
	store     *chat.Store
	conn      Connector
	events    <-chan connection.Event
	feed      *chat.Subscription
	alerts    alertQueue
	log       *slog.Logger

	panels []*chatPanel
	focus  int // index over panels x fields

	alert  *alertMsg
	status string
	err    error

	width  int
	height int

	// Loading screen
	loadingDots      int
	serverURL        string
	rooms            []string
	reconnectAttempt int  // Current reconnection attempt
	maxReconnects    int  // Maximum reconnection attempts
	waitingToRetry   bool // True when waiting for retry delay
}

// NewModel builds the blue and red panels over the same store
func NewModel(opts Options) Model {
	alerts := newAlertQueue()
	blue := newChatPanel(panel.NewController("blue", panel.ColorBlue, opts.Store, alerts))
	red := newChatPanel(panel.NewController("red", panel.ColorRed, opts.Store, alerts))
	blue.username.Focus()

	viewState := ViewLoading
	if opts.Conn == nil {
		viewState = ViewChat
	}

	return Model{
		viewState:     viewState,
		store:         opts.Store,
		conn:          opts.Conn,
		events:        opts.Events,
		feed:          opts.Store.Subscribe(feedBuffer),
		alerts:        alerts,
		log:           opts.Log,
		panels:        []*chatPanel{blue, red},
		width:         100,
		height:        30,
		serverURL:     opts.ServerURL,
		rooms:         opts.Rooms,
		maxReconnects: 5,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		listenForFeedCmd(m.feed),
		listenForAlertsCmd(m.alerts),
		listenForEventsCmd(m.events),
	}
	if m.viewState == ViewLoading && m.conn != nil {
		cmds = append(cmds, connectCmd(m.conn), tickCmd())
	}
	return tea.Batch(cmds...)
}

// Close releases the feed subscription
func (m Model) Close() {
	m.feed.Close()
}

func (m Model) focused() (*chatPanel, field) {
	return m.panels[m.focus/2], field(m.focus % 2)
}

func (m Model) focusedPanelIndex() int {
	return m.focus / 2
}

// moveFocus blurs the current input, commits a username being left and
// focuses the input delta steps away
func (m *Model) moveFocus(delta int) tea.Cmd {
	p, f := m.focused()
	if f == fieldUsername {
		p.ctrl.CommitUsername()
	}
	p.input(f).Blur()

	n := len(m.panels) * 2
	m.focus = ((m.focus+delta)%n + n) % n

	p, f = m.focused()
	return p.input(f).Focus()
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, p := range m.panels {
			p.setWidth(m.panelWidth() - 4)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Close()
			return m, tea.Quit
		}
		if m.alert != nil {
			return m.updateAlert(msg)
		}
		if m.viewState == ViewLoading {
			return m.updateLoading(msg)
		}
		return m.updateChat(msg)

	case alertMsg:
		m.alert = &msg
		return m, listenForAlertsCmd(m.alerts)

	case feedUpdatedMsg:
		// Both panels render from the store, nothing to copy
		return m, listenForFeedCmd(m.feed)

	case feedClosedMsg:
		return m, nil

	case connectionSuccessMsg:
		m.reconnectAttempt = 0
		m.waitingToRetry = false
		m.err = nil
		m.viewState = ViewChat
		m.status = "connected to " + m.serverURL
		return m, joinRoomsCmd(m.store, m.rooms)

	case connectionErrorMsg:
		m.err = msg.err
		m.reconnectAttempt++

		if m.reconnectAttempt < m.maxReconnects {
			m.waitingToRetry = true
			return m, retryConnectCmd(m.reconnectAttempt)
		}

		// Max retries exceeded, stay on loading screen with error
		m.waitingToRetry = false
		return m, nil

	case retryMsg:
		if m.viewState == ViewLoading && m.reconnectAttempt < m.maxReconnects {
			m.waitingToRetry = false
			return m, connectCmd(m.conn)
		}
		return m, nil

	case joinedRoomsMsg:
		if msg.err != nil {
			m.log.Warn("Failed to join rooms", "error", msg.err)
			m.status = "could not join rooms: " + msg.err.Error()
		}
		return m, nil

	case connectionEventMsg:
		return m.handleConnectionEvent(msg.event)

	case tickMsg:
		if m.viewState == ViewLoading {
			m.loadingDots = (m.loadingDots + 1) % 4
			return m, tickCmd()
		}
		return m, nil
	}

	// Cursor blink and other input messages go to the focused input
	p, f := m.focused()
	return m, p.update(f, msg)
}

// Add new event handlers below when you add new event types in connection/events.go
func (m Model) handleConnectionEvent(event connection.Event) (tea.Model, tea.Cmd) {
	switch e := event.(type) {
	case connection.ConnectedEvent:
		m.status = "connected to " + m.serverURL

	case connection.DisconnectedEvent:
		m.status = "disconnected"
		if e.Error != nil {
			m.status += ": " + e.Error.Error()
		}

	case connection.RoomJoinedEvent:
		m.status = fmt.Sprintf("joined %s as %s", e.RoomID, shortID(e.SessionID))

	case connection.ErrorEvent:
		m.status = "server error: " + e.Message
	}
	return m, listenForEventsCmd(m.events)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m Model) updateAlert(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.alert = nil
	}
	return m, nil
}

func (m Model) updateLoading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.Close()
		return m, tea.Quit
	case "o":
		// continue offline; sends are only kept locally
		m.viewState = ViewChat
		m.status = "offline"
	}
	return m, nil
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p, f := m.focused()

	switch msg.String() {
	case "tab":
		return m, m.moveFocus(1)

	case "shift+tab":
		return m, m.moveFocus(-1)

	case "ctrl+e":
		p.cycleStatus()
		return m, nil

	case "ctrl+r":
		p.cycleColor()
		return m, nil

	case "enter":
		if f == fieldUsername {
			return m, m.moveFocus(1)
		}
		if err := p.send(); err != nil && !errors.Is(err, chat.ErrEmptyUsername) {
			m.log.Warn("Send failed", "panel", p.ctrl.State().Name, "error", err)
		}
		return m, nil
	}

	return m, p.update(f, msg)
}

func (m Model) panelWidth() int {
	return max(m.width/len(m.panels), 24)
}

// View renders the current view
func (m Model) View() string {
	var base string
	switch m.viewState {
	case ViewLoading:
		base = m.viewLoading()
	default:
		base = m.viewChat()
	}
	if m.alert != nil {
		return m.viewAlert(base)
	}
	return base
}

func (m Model) viewChat() string {
	feed := m.store.Messages()
	height := max(m.height-4, 10)

	rendered := make([]string, len(m.panels))
	for i, p := range m.panels {
		rendered[i] = p.render(feed, m.panelWidth(), height, i == m.focusedPanelIndex())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, rendered...),
		m.renderStatusBar(),
	)
}

func (m Model) renderStatusBar() string {
	status := m.status
	if status == "" {
		status = "not connected"
	}
	controls := mutedStyle.Render("TAB: Focus  •  ENTER: Send  •  CTRL+E: Status  •  CTRL+R: Color  •  CTRL+C: Quit")
	return lipgloss.NewStyle().
		Width(m.width).
		Render(highlightStyle.Render(status) + "  •  " + controls)
}

func (m Model) viewLoading() string {
	title := titleStyle.Render("💬 DUOCHAT")

	dots := strings.Repeat(".", m.loadingDots)
	spinner := spinnerStyle.Render(string([]rune("◐◓◑◒")[m.loadingDots%4]))
	loadingText := mutedStyle.Render("Establishing connection" + dots)

	var errorMsg string
	if m.err != nil {
		errorMsg = errorStyle.Render("\n✗ Connection failed: " + m.err.Error())
		if !m.waitingToRetry && m.reconnectAttempt >= m.maxReconnects {
			errorMsg += mutedStyle.Render("\nPress O to continue offline, ESC to quit")
		}
	}

	mainContent := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		spinner+" "+loadingText,
		errorMsg,
	)

	instructions := instructionStyle.Render(
		mutedStyle.Render("Connecting to ") + highlightStyle.Render(m.serverURL) + "  •  " +
			mutedStyle.Render("ESC to quit"))

	centeredMain := lipgloss.Place(m.width, max(m.height-3, 1), lipgloss.Center, lipgloss.Center, mainContent)
	bottomInstructions := lipgloss.Place(m.width, 2, lipgloss.Center, lipgloss.Bottom, instructions)

	return centeredMain + "\n" + bottomInstructions
}
