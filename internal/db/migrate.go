package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id          TEXT        PRIMARY KEY,
  email       TEXT,
  given_name  TEXT,
  family_name TEXT,
  phone       TEXT,
  role        TEXT        NOT NULL DEFAULT 'citizen' CHECK (role IN ('citizen', 'admin')),
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_schemes",
		SQL: `CREATE TABLE IF NOT EXISTS schemes (
  id          TEXT        PRIMARY KEY,
  title       TEXT        NOT NULL,
  description TEXT        NOT NULL DEFAULT '',
  category    TEXT        NOT NULL,
  ministry    TEXT,
  benefits    TEXT,
  eligibility TEXT,
  state       TEXT,
  is_active   BOOLEAN     NOT NULL DEFAULT true,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_scheme_documents",
		SQL: `CREATE TABLE IF NOT EXISTS scheme_documents (
  scheme_id     TEXT    NOT NULL REFERENCES schemes (id) ON DELETE CASCADE,
  name          TEXT    NOT NULL,
  required      BOOLEAN NOT NULL DEFAULT true,
  display_order INT     NOT NULL DEFAULT 0,
  PRIMARY KEY (scheme_id, name)
);`,
	},
	{
		Name: "create_table_applications",
		SQL: `CREATE TABLE IF NOT EXISTS applications (
  id               TEXT        PRIMARY KEY,
  user_id          TEXT        NOT NULL,
  scheme_id        TEXT        NOT NULL REFERENCES schemes (id),
  status           TEXT        NOT NULL CHECK (status IN ('draft', 'submitted', 'under_review', 'approved', 'rejected')),
  personal_info    JSONB       NOT NULL,
  documents        JSONB       NOT NULL DEFAULT '[]'::jsonb,
  metadata         JSONB       NOT NULL DEFAULT '{}'::jsonb,
  idempotency_key  TEXT,
  review_notes     TEXT,
  rejection_reason TEXT,
  reviewed_by      TEXT,
  reviewed_at      TIMESTAMPTZ,
  submitted_at     TIMESTAMPTZ,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_applications_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_applications_user_id ON applications (user_id);`,
	},
	{
		Name: "create_index_applications_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_applications_status ON applications (status);`,
	},
	{
		Name: "create_table_application_status_history",
		SQL: `CREATE TABLE IF NOT EXISTS application_status_history (
  id             TEXT        PRIMARY KEY,
  application_id TEXT        NOT NULL REFERENCES applications (id) ON DELETE CASCADE,
  from_status    TEXT,
  to_status      TEXT        NOT NULL,
  changed_by     TEXT        NOT NULL,
  notes          TEXT,
  reason         TEXT,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
}

// Migrate creates schema and the tables the portal needs. Every step is
// idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string, logger logrus.FieldLogger) error {
	if schema != "" {
		if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
	}

	for _, step := range steps {
		if _, err := pool.Exec(ctx, step.SQL); err != nil {
			return fmt.Errorf("migration step %s: %w", step.Name, err)
		}
		logger.WithField("step", step.Name).Debug("migration step applied")
	}

	logger.WithField("steps", len(steps)).Info("database migrated")
	return nil
}
