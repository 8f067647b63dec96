package main

import (
	"context"
	"fmt"

	"welfareportal/internal/db"
	"welfareportal/internal/store"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var schemeCommand = &cli.Command{
	Name:  "scheme",
	Usage: "Inspect schemes in the database",
	Subcommands: []*cli.Command{
		{
			Name:  "show",
			Usage: "Print a scheme and its document requirements",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Usage:    "Scheme ID",
					Required: true,
				},
			},
			Action: showScheme,
		},
	},
}

func showScheme(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	scheme, err := store.NewSchemeRepository(pool).Scheme(ctx, c.String("id"))
	if err != nil {
		return err
	}

	documents, err := store.NewSchemeDocumentRepository(pool).DocumentRequirements(ctx, scheme.ID)
	if err != nil {
		return err
	}

	printer := pp.New()
	printer.SetColoringEnabled(isTerminal())
	_, _ = printer.Println(scheme)
	_, _ = printer.Println(documents)

	return nil
}
