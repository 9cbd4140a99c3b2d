package testutil

import (
	"testing"

	"github.com/wayfarergame/wayfarer/cache"
	"github.com/wayfarergame/wayfarer/config"
	dbadapter "github.com/wayfarergame/wayfarer/db"
	"github.com/wayfarergame/wayfarer/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an in-memory SQLite audit store and runs AutoMigrate.
// It requires no external services.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.AuditConfig{Mode: dbadapter.ModeMemory})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestCache creates a local cache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.New(config.CacheConfig{}) // empty RedisAddr → local
	require.NoError(t, err, "SetupTestCache: New")
	return c
}
