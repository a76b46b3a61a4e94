package database

import (
	"fmt"
	"testing"

	"kelabpetani/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMigrateCreatesTables(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	for _, m := range []interface{}{&model.User{}, &model.Product{}, &model.Order{}, &model.PawahProject{}, &model.Message{}, &model.AuditLog{}} {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	// Idempotent.
	require.NoError(t, Migrate(db))
}
