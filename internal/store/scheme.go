package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"welfareportal/internal/utils"
	"welfareportal/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemeTableName = "schemes"

var schemeColumns = utils.StructTagValues(types.Scheme{})

type SchemeRepository struct {
	pool *pgxpool.Pool
}

func NewSchemeRepository(pool *pgxpool.Pool) *SchemeRepository {
	return &SchemeRepository{pool: pool}
}

// ActiveSchemes returns active schemes in title order. A zero limit means no
// limit.
func (r *SchemeRepository) ActiveSchemes(ctx context.Context, limit uint64) ([]*types.Scheme, error) {
	builder := psql().
		Select(schemeColumns...).
		From(schemeTableName).
		Where(sq.Eq{"is_active": true}).
		OrderBy("title ASC", "id ASC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schemes query: %w", err)
	}

	var schemes []*types.Scheme
	err = pgxscan.Select(ctx, r.pool, &schemes, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schemes: %w", err)
	}

	return schemes, nil
}

func (r *SchemeRepository) Scheme(ctx context.Context, id string) (*types.Scheme, error) {
	query, args, err := psql().
		Select(schemeColumns...).
		From(schemeTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate scheme query: %w", err)
	}

	var scheme types.Scheme
	err = pgxscan.Get(ctx, r.pool, &scheme, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrSchemeNotFound
		}
		return nil, fmt.Errorf("failed to fetch scheme: %w", err)
	}

	return &scheme, nil
}

func (r *SchemeRepository) UpsertScheme(ctx context.Context, scheme *types.Scheme) error {
	now := time.Now()
	if scheme.CreatedAt.IsZero() {
		scheme.CreatedAt = now
	}
	scheme.UpdatedAt = now

	schemeMap := utils.StructToMap(scheme)

	// Exclude id and created_at from updates
	updateMap := make(map[string]any)
	for k, v := range schemeMap {
		if k != "id" && k != "created_at" {
			updateMap[k] = v
		}
	}

	query, args, err := psql().
		Insert(schemeTableName).
		SetMap(schemeMap).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + buildUpdateClause(updateMap)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert scheme: %w", err)
	}

	return nil
}

// DeactivateMissing marks every scheme not in keep as inactive.
func (r *SchemeRepository) DeactivateMissing(ctx context.Context, keep []string) (int64, error) {
	builder := psql().
		Update(schemeTableName).
		Set("is_active", false).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"is_active": true})
	if len(keep) > 0 {
		builder = builder.Where(sq.NotEq{"id": keep})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate deactivate query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate schemes: %w", err)
	}

	return tag.RowsAffected(), nil
}

// buildUpdateClause creates the SET clause for ON CONFLICT DO UPDATE
// e.g., "title = EXCLUDED.title, category = EXCLUDED.category, ..."
func buildUpdateClause(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for field := range fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	var clause string
	for i, field := range keys {
		if i > 0 {
			clause += ", "
		}
		clause += fmt.Sprintf("%s = EXCLUDED.%s", field, field)
	}
	return clause
}
