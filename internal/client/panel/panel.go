// Package panel holds the per-panel state of one chat form: who is typing,
// their status glyph, the draft and the panel color.
package panel

import (
	"errors"
	"slices"
	"strings"

	"github.com/yourusername/duochat/internal/chat"
)

// Status emoji a panel can prefix to outbound messages.
var StatusEmojis = []string{"😊", "😎", "😢", "🔥", "💬", "✨"}

// Background colors a panel can pick from.
var Colors = []string{"#FF6347", "#00BFFF", "#32CD32"}

const (
	ColorRed  = "#FF6347"
	ColorBlue = "#00BFFF"
)

const (
	AlertTitle         = "Error"
	AlertEmptyUsername = "Please enter a username before sending the message."
)

// Alerter surfaces a blocking notification to the user.
type Alerter interface {
	Alert(title, text string)
}

// Submitter is the slice of the message store a panel needs.
type Submitter interface {
	Submit(msg chat.Message) error
	Messages() []chat.Message
}

// State is the panel-local state. Nothing in it is shared with the other panel.
type State struct {
	Name             string
	Username         string
	PreviousUsername string
	StatusEmoji      string
	Draft            string
	Color            string
}

type Controller struct {
	state State
	store Submitter
	alert Alerter
}

func NewController(name, color string, store Submitter, alert Alerter) *Controller {
	return &Controller{
		state: State{Name: name, Color: color},
		store: store,
		alert: alert,
	}
}

func (c *Controller) State() State {
	return c.state
}

// Feed is the shared store feed, identical for every panel.
func (c *Controller) Feed() []chat.Message {
	return c.store.Messages()
}

// ChangeUsername updates this panel only.
func (c *Controller) ChangeUsername(text string) {
	c.state.Username = text
}

// CommitUsername records the current username as the one shown in the
// "(previous)" label.
func (c *Controller) CommitUsername() {
	c.state.PreviousUsername = c.state.Username
}

// ChangeStatus ignores glyphs outside StatusEmojis.
func (c *Controller) ChangeStatus(emoji string) {
	if slices.Contains(StatusEmojis, emoji) {
		c.state.StatusEmoji = emoji
	}
}

// ChangeColor ignores colors outside Colors.
func (c *Controller) ChangeColor(color string) {
	if slices.Contains(Colors, color) {
		c.state.Color = color
	}
}

func (c *Controller) ChangeDraft(text string) {
	c.state.Draft = text
}

// Compose builds the outbound body: status glyph, a space, then the draft.
func (c *Controller) Compose() string {
	return c.state.StatusEmoji + " " + c.state.Draft
}

// Send submits the draft under the panel username. A blank username raises
// one alert and keeps the draft; a blank draft does nothing.
func (c *Controller) Send() error {
	if strings.TrimSpace(c.state.Username) == "" {
		if c.alert != nil {
			c.alert.Alert(AlertTitle, AlertEmptyUsername)
		}
		return chat.ErrEmptyUsername
	}
	if strings.TrimSpace(c.state.Draft) == "" {
		return nil
	}

	err := c.store.Submit(chat.Message{Username: c.state.Username, Message: c.Compose()})
	if errors.Is(err, chat.ErrEmptyUsername) && c.alert != nil {
		c.alert.Alert(AlertTitle, AlertEmptyUsername)
	}
	if err != nil {
		return err
	}

	c.state.Draft = ""
	c.CommitUsername()
	return nil
}
