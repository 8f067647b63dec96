package main

import (
	"context"
	"fmt"

	"welfareportal/internal/db"
	"welfareportal/internal/seed"
	"welfareportal/internal/store"

	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Create or update the database schema",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()
		logger := newLogger()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		return db.Migrate(ctx, pool, cfg.DatabaseSchema, logger)
	},
}

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Load the embedded scheme catalog into the database",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "skip-migrate",
			Usage: "Do not run migrations before seeding",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()
		logger := newLogger()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger.Info("connected to database")

		if !c.Bool("skip-migrate") {
			if err := db.Migrate(ctx, pool, cfg.DatabaseSchema, logger); err != nil {
				return err
			}
		}

		if err := seed.SeedSchemes(ctx, logger, store.NewSchemeRepository(pool), store.NewSchemeDocumentRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed schemes: %w", err)
		}

		logger.Info("schemes seeded successfully")

		return nil
	},
}
