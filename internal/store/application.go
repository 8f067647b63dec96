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

const applicationTableName = "applications"

var applicationColumns = utils.StructTagValues(types.Application{})

type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

// CreateApplication inserts the application as a single write and fills in
// its id and timestamps.
func (r *ApplicationRepository) CreateApplication(ctx context.Context, application *types.Application) error {
	if !application.Status.Valid() {
		return fmt.Errorf("refusing to insert application with status %q: %w", application.Status, types.ErrUnknownStatus)
	}

	now := time.Now()
	application.ID = utils.NanoID()
	application.CreatedAt = now
	application.UpdatedAt = now
	if application.Documents == nil {
		application.Documents = []types.UploadedDocument{}
	}
	if application.Metadata == nil {
		application.Metadata = map[string]any{}
	}

	query, args, err := psql().
		Insert(applicationTableName).
		SetMap(utils.StructToMap(application)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert application query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create application")
}

func (r *ApplicationRepository) Application(ctx context.Context, applicationID string) (*types.Application, error) {
	query, args, err := psql().
		Select(applicationColumns...).
		From(applicationTableName).
		Where(sq.Eq{"id": applicationID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate application query: %w", err)
	}

	var application = new(types.Application)
	err = pgxscan.Get(ctx, r.pool, application, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to fetch application: %w", err)
	}

	if err := application.Validate(); err != nil {
		return nil, err
	}

	return application, nil
}

func (r *ApplicationRepository) ApplicationsByUser(ctx context.Context, userID string) ([]*types.Application, error) {
	return r.list(ctx, sq.Eq{"user_id": userID}, 0)
}

// ApplicationsByStatus lists applications newest first. An empty status
// lists every application.
func (r *ApplicationRepository) ApplicationsByStatus(ctx context.Context, status types.ApplicationStatus, limit uint64) ([]*types.Application, error) {
	if status == "" {
		return r.list(ctx, nil, limit)
	}
	return r.list(ctx, sq.Eq{"status": status}, limit)
}

func (r *ApplicationRepository) list(ctx context.Context, where sq.Sqlizer, limit uint64) ([]*types.Application, error) {
	builder := psql().
		Select(applicationColumns...).
		From(applicationTableName).
		OrderBy("submitted_at DESC NULLS LAST", "created_at DESC")
	if where != nil {
		builder = builder.Where(where)
	}
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate applications query: %w", err)
	}

	var applications = make([]*types.Application, 0)
	err = pgxscan.Select(ctx, r.pool, &applications, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}

	for _, application := range applications {
		if err := application.Validate(); err != nil {
			return nil, err
		}
	}

	return applications, nil
}

// ReviewUpdate is the patch written when an administrator decides on an
// application.
type ReviewUpdate struct {
	Status          types.ApplicationStatus
	ReviewNotes     *string
	RejectionReason *string
	ReviewedBy      string
	ReviewedAt      time.Time
}

// UpdateReview moves an application from status `from` to the reviewed
// status. The update only applies while the row still has status `from`, so
// two reviewers racing on one application cannot both win. submitted_at is
// never touched.
func (r *ApplicationRepository) UpdateReview(ctx context.Context, applicationID string, from types.ApplicationStatus, update ReviewUpdate) error {
	query, args, err := psql().
		Update(applicationTableName).
		Set("status", update.Status).
		Set("review_notes", update.ReviewNotes).
		Set("rejection_reason", update.RejectionReason).
		Set("reviewed_by", update.ReviewedBy).
		Set("reviewed_at", update.ReviewedAt).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": applicationID, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate review update query for application %s: %w", applicationID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update application review: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrStaleStatus
	}

	return nil
}
