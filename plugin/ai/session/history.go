package session

// TrimHistory returns the newest max messages of msgs in order.
// The result shares the backing array with msgs; a non-positive max returns msgs unchanged.
func TrimHistory(msgs []Message, max int) []Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	return msgs[len(msgs)-max:]
}

// cloneMessages returns a copy that never aliases msgs. Nil becomes an empty slice.
func cloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

func normalizeMaxHistory(max int) int {
	if max <= 0 {
		return DefaultMaxHistory
	}
	return max
}
