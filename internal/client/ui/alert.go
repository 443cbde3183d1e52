package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// alertQueue implements panel.Alerter by handing alerts to the bubbletea loop
type alertQueue chan alertMsg

func newAlertQueue() alertQueue {
	return make(alertQueue, 8)
}

func (q alertQueue) Alert(title, text string) {
	select {
	case q <- alertMsg{title: title, text: text}:
	default:
		// an alert is already waiting to be shown
	}
}

func (m Model) viewAlert(base string) string {
	body := lipgloss.JoinVertical(
		lipgloss.Center,
		errorStyle.Render(m.alert.title),
		"",
		m.alert.text,
		"",
		instructionStyle.Render("Press ENTER to dismiss"),
	)
	if m.width == 0 || m.height == 0 {
		return base + "\n\n" + alertBoxStyle.Render(body)
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, alertBoxStyle.Render(body))
}
