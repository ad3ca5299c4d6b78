package testutil

import (
	"testing"

	"github.com/dentscan/dentclaim/cache"
	"github.com/dentscan/dentclaim/config"
	dbadapter "github.com/dentscan/dentclaim/db"
	"github.com/dentscan/dentclaim/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an isolated in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode: dbadapter.ModeSQLiteMemory,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates a LocalCache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewCache(cache.CacheConfig{}) // empty RedisAddr → LocalCache
	require.NoError(t, err, "SetupTestCache: NewCache")
	if cl, ok := c.(interface{ Close() }); ok {
		t.Cleanup(cl.Close)
	}
	return c
}
