// Package chat owns the single shared message feed rendered by both panels.
package chat

import (
	"errors"
	"strings"
)

var (
	ErrEmptyUsername = errors.New("username is empty")
	ErrEmptyMessage  = errors.New("message is empty")
)

// Message is one feed entry. It is never edited once appended.
type Message struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// Validate rejects blank usernames first, then blank bodies.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Username) == "" {
		return ErrEmptyUsername
	}
	if strings.TrimSpace(m.Message) == "" {
		return ErrEmptyMessage
	}
	return nil
}

func (m Message) String() string {
	return m.Username + ": " + m.Message
}
