package session

import (
	"context"
	"sync"
)

// memoryStore keeps transcripts in process memory. Contents are lost on restart.
type memoryStore struct {
	maxHistory int

	mu       sync.RWMutex
	sessions map[string][]Message
}

// NewMemorySessionStore creates an in-memory SessionService.
func NewMemorySessionStore(maxHistory int) SessionService {
	return &memoryStore{
		maxHistory: normalizeMaxHistory(maxHistory),
		sessions:   make(map[string][]Message),
	}
}

func (s *memoryStore) GetHistory(ctx context.Context, sessionID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.sessions[sessionID]), nil
}

func (s *memoryStore) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	if err := validateAppend(sessionID, msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy so slices handed out earlier never see the trimmed backing array change.
	next := make([]Message, 0, len(s.sessions[sessionID])+1)
	next = append(next, s.sessions[sessionID]...)
	next = append(next, msg)
	s.sessions[sessionID] = TrimHistory(next, s.maxHistory)
	return nil
}

var _ SessionService = (*memoryStore)(nil)
