package timeout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short"))

	long := strings.Repeat("é", MaxTruncateLength+5)
	got := Truncate(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, MaxTruncateLength+3, len([]rune(got)))
}
