package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/yourusername/duochat/internal/chat"
	"github.com/yourusername/duochat/internal/client/panel"
)

// field identifies one of the two inputs of a panel
type field int

const (
	fieldUsername field = iota
	fieldDraft
)

// chatPanel pairs a panel controller with its text inputs
type chatPanel struct {
	ctrl     *panel.Controller
	username textinput.Model
	draft    textinput.Model
}

func newChatPanel(ctrl *panel.Controller) *chatPanel {
	username := textinput.New()
	username.Prompt = "👤 "
	username.Placeholder = "username"
	username.CharLimit = 32

	draft := textinput.New()
	draft.Prompt = "> "
	draft.Placeholder = "Type your message"
	draft.CharLimit = 500

	return &chatPanel{ctrl: ctrl, username: username, draft: draft}
}

func (p *chatPanel) input(f field) *textinput.Model {
	if f == fieldUsername {
		return &p.username
	}
	return &p.draft
}

// update forwards a key to the focused input and mirrors it into the controller
func (p *chatPanel) update(f field, msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f {
	case fieldUsername:
		p.username, cmd = p.username.Update(msg)
		p.ctrl.ChangeUsername(p.username.Value())
	case fieldDraft:
		p.draft, cmd = p.draft.Update(msg)
		p.ctrl.ChangeDraft(p.draft.Value())
	}
	return cmd
}

// send submits the draft; on success the draft input is cleared
func (p *chatPanel) send() error {
	if err := p.ctrl.Send(); err != nil {
		return err
	}
	p.draft.SetValue(p.ctrl.State().Draft)
	return nil
}

func (p *chatPanel) cycleStatus() {
	current := p.ctrl.State().StatusEmoji
	p.ctrl.ChangeStatus(nextOf(panel.StatusEmojis, current))
}

func (p *chatPanel) cycleColor() {
	current := p.ctrl.State().Color
	p.ctrl.ChangeColor(nextOf(panel.Colors, current))
}

func nextOf(options []string, current string) string {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func (p *chatPanel) setWidth(width int) {
	p.username.Width = max(width-6, 4)
	p.draft.Width = max(width-4, 4)
}

// render draws the panel; feed is the shared store snapshot
func (p *chatPanel) render(feed []chat.Message, width, height int, focused bool) string {
	state := p.ctrl.State()
	inner := max(width-4, 10)

	header := headerStyle(state.Color, inner).Render(strings.ToUpper(state.Name))

	previous := state.PreviousUsername
	usernameRow := p.username.View() + " " + mutedStyle.Render("("+previous+")")

	statusRow := p.renderStatusRow(state.StatusEmoji)
	colorRow := p.renderColorRow(state.Color)

	// header, username, status, blank, feed..., blank, draft, colors
	feedHeight := max(height-8, 1)
	feedBlock := renderFeed(feed, inner, feedHeight)

	body := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		usernameRow,
		statusRow,
		"",
		feedBlock,
		"",
		p.draft.View(),
		colorRow,
	)
	return panelStyle(state.Color, inner, height, focused).Render(body)
}

func (p *chatPanel) renderStatusRow(selected string) string {
	parts := make([]string, 0, len(panel.StatusEmojis)+1)
	for _, emoji := range panel.StatusEmojis {
		if emoji == selected {
			parts = append(parts, selectedOptionStyle.Render(emoji))
		} else {
			parts = append(parts, optionStyle.Render(emoji))
		}
	}
	current := selected
	if current == "" {
		current = mutedStyle.Render("none")
	}
	return strings.Join(parts, " ") + "  " + mutedStyle.Render("status:") + " " + current
}

func (p *chatPanel) renderColorRow(selected string) string {
	parts := make([]string, 0, len(panel.Colors))
	for _, color := range panel.Colors {
		label := "  "
		if color == selected {
			label = "●"
		}
		parts = append(parts, swatchStyle(color, color == selected).Render(label))
	}
	return strings.Join(parts, " ")
}

// renderFeed wraps every entry to width and keeps the most recent lines
func renderFeed(feed []chat.Message, width, height int) string {
	if len(feed) == 0 {
		return feedStyle.Height(height).Render(mutedStyle.Render("No messages yet."))
	}

	var lines []string
	for _, msg := range feed {
		line := usernameStyle.Render(msg.Username+":") + " " + msg.Message
		lines = append(lines, strings.Split(wordwrap.String(line, width-2), "\n")...)
	}
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return feedStyle.Height(height).Render(strings.Join(lines, "\n"))
}
