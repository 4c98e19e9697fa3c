package store

// ChatMessage is one turn of a session transcript.
type ChatMessage struct {
	ID        int64
	UID       string
	SessionID string
	Role      string
	Content   string
	CreatedTs int64
}

// FindChatMessage selects messages of one session in chronological order.
type FindChatMessage struct {
	SessionID string
	// Limit keeps only the newest Limit messages when set.
	Limit *int
}

// AppendChatMessage inserts Message and trims the session to its newest Keep messages
// in the same transaction. A non-positive Keep disables trimming.
type AppendChatMessage struct {
	Message *ChatMessage
	Keep    int
}
