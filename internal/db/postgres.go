package db

import (
	"context"
	"fmt"
	"time"

	"welfareportal/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "welfareportal"

// Connect opens the pool and checks the database answers. Unqualified table
// names resolve against config.DatabaseSchema unless the URL already sets a
// search_path.
func Connect(ctx context.Context, config *types.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	params := poolConfig.ConnConfig.RuntimeParams
	if _, ok := params["search_path"]; !ok && config.DatabaseSchema != "" {
		params["search_path"] = config.DatabaseSchema
	}
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = applicationName
	}

	if config.DatabaseMaxConns > 0 {
		poolConfig.MaxConns = config.DatabaseMaxConns
	}
	poolConfig.MaxConnIdleTime = 15 * time.Minute
	poolConfig.MaxConnLifetime = 45 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
