package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestInit_CreatesSchema(t *testing.T) {
	db, err := Init(Config{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	for _, table := range []string{"app_settings", "model_settings", "scenarios", "information_items", "experiments"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}
