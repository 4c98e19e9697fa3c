package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/leanmind/internal/profile"
	"github.com/hrygo/leanmind/store"
	"github.com/hrygo/leanmind/store/db"
)

// getDriverFromEnv returns the driver under test. DRIVER=postgres also needs POSTGRES_TEST_DSN.
func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}

// NewTestingStore opens a migrated store for the driver selected by the environment.
// SQLite databases live in a per test temp dir.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: getDriverFromEnv(),
	}
	switch p.Driver {
	case "postgres":
		p.DSN = os.Getenv("POSTGRES_TEST_DSN")
		if p.DSN == "" {
			t.Skip("POSTGRES_TEST_DSN is not set")
		}
	default:
		p.Driver = "sqlite"
		p.Data = t.TempDir()
		p.DSN = filepath.Join(p.Data, "leanmind_test.db")
	}

	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)

	ts := store.New(driver, p)
	t.Cleanup(func() {
		ts.Close()
	})
	require.NoError(t, ts.Migrate(ctx))
	return ts
}
