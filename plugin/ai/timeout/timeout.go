// Package timeout defines centralized timeout constants for relay operations.
package timeout

import "time"

const (
	// CompletionTimeout bounds a single completion call when none is configured.
	CompletionTimeout = 60 * time.Second

	// PersistTimeout bounds each transcript write issued after a reply was obtained.
	PersistTimeout = 5 * time.Second

	// SessionClientTimeout is the HTTP timeout of the remote session store client.
	SessionClientTimeout = 10 * time.Second

	// ShutdownTimeout is how long in-flight requests get to finish on shutdown.
	ShutdownTimeout = 10 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)

// Truncate shortens s to MaxTruncateLength runes for logging.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxTruncateLength {
		return s
	}
	return string(r[:MaxTruncateLength]) + "..."
}
