package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/leanmind/internal/profile"
	"github.com/hrygo/leanmind/store"
	"github.com/hrygo/leanmind/store/db/postgres"
	"github.com/hrygo/leanmind/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
// Only the SQL drivers are handled here; redis and memory sessions do not go through store.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
