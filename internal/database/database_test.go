package database

import (
	"path/filepath"
	"testing"

	"github.com/partnerhub/core/internal/config"
	"github.com/partnerhub/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory_MigratesWebhookTables(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)

	for _, model := range []interface{}{
		&models.WebhookSubscription{},
		&models.WebhookSubscriptionEvent{},
		&models.WebhookDeliveryLog{},
	} {
		assert.True(t, db.Migrator().HasTable(model))
	}
}

func TestConnect_SQLiteFile(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.Env = "production"
	cfg.Database.Driver = "sqlite"
	cfg.DSN = filepath.Join(t.TempDir(), "nested", "hub.db")

	db, err := Connect(cfg, true)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", db.Dialector.Name())
	assert.True(t, db.Migrator().HasTable(&models.WebhookDeliveryLog{}))
}
