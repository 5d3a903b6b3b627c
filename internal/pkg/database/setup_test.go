package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
)

func TestSetupDatabaseSQLiteMigratesSchema(t *testing.T) {
	db, err := SetupDatabase(Config{Driver: DriverSQLite, DSN: "file:setup_test?mode=memory&cache=shared", MaxRetries: 1})
	require.NoError(t, err)

	for _, model := range []interface{}{
		&models.User{},
		&models.Profile{},
		&models.BillingWebhookEvent{},
		&models.BlogPost{},
		&models.BlogPostTranslation{},
		&models.TrackedSubscription{},
	} {
		assert.True(t, db.Migrator().HasTable(model))
	}
}

func TestSetupDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := SetupDatabase(Config{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestConfigFromEnvBuildsDSN(t *testing.T) {
	prev := env.Env
	t.Cleanup(func() { env.Env = prev })

	env.Env = map[string]string{
		"DB_DRIVER":   "mysql",
		"DB_USER":     "cash",
		"DB_PASSWORD": "secret",
		"DB_HOST":     "db",
		"DB_NAME":     "cashduezy",
	}
	cfg := ConfigFromEnv()
	assert.Equal(t, DriverMySQL, cfg.Driver)
	assert.Equal(t, "cash:secret@tcp(db:3306)/cashduezy?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN)

	env.Env = map[string]string{"DB_HOST": "pg", "DB_USER": "u", "DB_PASSWORD": "p", "DB_NAME": "n"}
	cfg = ConfigFromEnv()
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "host=pg user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", cfg.DSN)

	env.Env = map[string]string{"DB_DSN": "custom"}
	assert.Equal(t, "custom", ConfigFromEnv().DSN)
}
