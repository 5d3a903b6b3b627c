package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config selects the SQL driver and connection string.
type Config struct {
	Driver     string
	DSN        string
	MaxRetries int
	RetryDelay time.Duration
	Debug      bool
}

// ConfigFromEnv builds the connection settings from DB_* variables.
func ConfigFromEnv() Config {
	cfg := Config{
		Driver:     env.GetEnv("DB_DRIVER", DriverPostgres),
		DSN:        env.GetEnv("DB_DSN", ""),
		MaxRetries: env.GetInt("DB_MAX_RETRIES", 5),
		RetryDelay: env.GetDuration("DB_RETRY_DELAY", 5*time.Second),
		Debug:      env.IsDev(),
	}
	if cfg.DSN != "" {
		return cfg
	}

	switch cfg.Driver {
	case DriverMySQL:
		// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
		cfg.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			env.GetEnv("DB_USER", ""),
			env.GetEnv("DB_PASSWORD", ""),
			env.GetEnv("DB_HOST", "127.0.0.1"),
			env.GetEnv("DB_PORT", "3306"),
			env.GetEnv("DB_NAME", ""),
		)
	case DriverSQLite:
		cfg.DSN = env.GetEnv("DB_NAME", "cashduezy.db")
	default:
		cfg.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			env.GetEnv("DB_HOST", "127.0.0.1"),
			env.GetEnv("DB_USER", ""),
			env.GetEnv("DB_PASSWORD", ""),
			env.GetEnv("DB_NAME", ""),
			env.GetEnv("DB_PORT", "5432"),
			env.GetEnv("DB_SSLMODE", "disable"),
		)
	}
	return cfg
}

func dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case DriverMySQL:
		return mysql.New(mysql.Config{
			DSN:                       cfg.DSN,
			DefaultStringSize:         256,
			SkipInitializeWithVersion: false,
		}), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// SetupDatabase opens the connection, retrying while the server comes up,
// and migrates the schema.
func SetupDatabase(cfg Config) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{}
	if !cfg.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var db *gorm.DB
	for i := 0; i < retries; i++ {
		db, err = gorm.Open(d, gormCfg)
		if err == nil {
			if err = AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
			log.Infof("[Database] connected (%s)", cfg.Driver)
			return db, nil
		}

		log.Warnf("[Database] failed to connect (try %d/%d): %v", i+1, retries, err)
		if i < retries-1 {
			time.Sleep(cfg.RetryDelay)
		}
	}

	return nil, err
}

// AutoMigrate keeps the gorm models and the schema in sync. SQL migrations in
// migrations/ are the source of truth for production databases.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ProviderAccount{},
		&models.Profile{},
		&models.BillingWebhookEvent{},
		&models.BlogPost{},
		&models.BlogPostTranslation{},
		&models.TrackedSubscription{},
	)
}
