package bootstrap

import (
	"context"
	"fmt"

	"github.com/novaiq/backend/internal/config"
	"github.com/novaiq/backend/internal/database"
)

// SetupDatabase creates a database connection from config and applies schema
// migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config) (*database.Connection, error) {
	dbCfg := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxConnections:  cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnectionMaxLifetime,
	}

	db, connErr := database.NewConnection(dbCfg)
	if connErr != nil {
		return nil, fmt.Errorf("database connection: %w", connErr)
	}

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", migrateErr)
	}

	return db, nil
}
