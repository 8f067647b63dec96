package store

import (
	"context"
	"fmt"
	"time"

	"welfareportal/internal/utils"
	"welfareportal/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const statusHistoryTableName = "application_status_history"

var statusHistoryColumns = utils.StructTagValues(types.StatusChange{})

type StatusHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewStatusHistoryRepository(pool *pgxpool.Pool) *StatusHistoryRepository {
	return &StatusHistoryRepository{pool: pool}
}

// RecordChange appends a status change. History rows are never updated.
func (r *StatusHistoryRepository) RecordChange(ctx context.Context, change *types.StatusChange) error {
	change.ID = utils.NanoID()
	change.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(statusHistoryTableName).
		SetMap(utils.StructToMap(change)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert status change query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to record status change")
}

// HistoryByApplication returns status changes oldest first.
func (r *StatusHistoryRepository) HistoryByApplication(ctx context.Context, applicationID string) ([]*types.StatusChange, error) {
	query, args, err := psql().
		Select(statusHistoryColumns...).
		From(statusHistoryTableName).
		Where(sq.Eq{"application_id": applicationID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate status history query: %w", err)
	}

	var changes []*types.StatusChange
	err = pgxscan.Select(ctx, r.pool, &changes, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to get status history")
	}

	return changes, nil
}
