package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/leanmind/internal/profile"
)

func TestWithPragmas(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"/data/leanmind.db", "/data/leanmind.db?" + pragmas},
		{"/data/leanmind.db?_txlock=immediate", "/data/leanmind.db?_txlock=immediate&" + pragmas},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, withPragmas(tt.dsn))
		})
	}
}

func TestNewDBKeepsDSNQuery(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "leanmind.db") + "?_txlock=immediate"
	driver, err := NewDB(&profile.Profile{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	defer driver.Close()

	var busyTimeout int
	require.NoError(t, driver.GetDB().QueryRowContext(context.Background(), "PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 10000, busyTimeout)
}
