// Package session stores the bounded per-session transcripts replayed to the completion API.
package session

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxHistory is the number of messages a session keeps when no cap is configured.
const DefaultMaxHistory = 20

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrEmptySessionID is returned when an operation is called without a session id.
	ErrEmptySessionID = errors.New("session id is required")
	// ErrInvalidRole is returned when a message role is not system, user or assistant.
	ErrInvalidRole = errors.New("invalid message role")
)

// SessionService owns one ordered, bounded message list per session id.
type SessionService interface {
	// GetHistory returns a copy of the session's messages in append order.
	// An unknown session yields an empty slice and no error.
	GetHistory(ctx context.Context, sessionID string) ([]Message, error)

	// AppendMessage appends msg and drops the oldest messages so that at most
	// the configured maximum remains. It returns once the write is durable.
	AppendMessage(ctx context.Context, sessionID string, msg Message) error
}

// Message is one turn of a conversation. It is immutable once appended.
type Message struct {
	Role    string `json:"role"` // "user" | "assistant" | "system"
	Content string `json:"content"`
}

// Validate checks the message role.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
	}
}

func validateAppend(sessionID string, msg Message) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	return msg.Validate()
}
