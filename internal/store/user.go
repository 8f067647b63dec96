package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"welfareportal/internal/utils"
	"welfareportal/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userTableName = "users"

var userColumns = utils.StructTagValues(types.User{})

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

// Contact returns the email and phone used for notifications.
func (r *UserRepository) Contact(ctx context.Context, userID string) (string, string, error) {
	user, err := r.User(ctx, userID)
	if err != nil {
		return "", "", err
	}

	return utils.PtrString(user.Email), utils.PtrString(user.Phone), nil
}

// UpsertFromIdentity records the signed-in user so that reviewers and
// notifications can find them later. Role follows the auth provider.
func (r *UserRepository) UpsertFromIdentity(ctx context.Context, identity *types.Identity, phone string) error {
	now := time.Now()

	role := identity.Role
	if role == "" {
		role = types.RoleCitizen
	}

	givenName, familyName := splitName(identity.Name)

	query, args, err := psql().
		Insert(userTableName).
		Columns("id", "email", "given_name", "family_name", "phone", "role", "created_at", "updated_at").
		Values(identity.UserID, nullable(strings.TrimSpace(identity.Email)), nullable(givenName), nullable(familyName), nullable(strings.TrimSpace(phone)), role, now, now).
		Suffix("ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, given_name = COALESCE(EXCLUDED.given_name, users.given_name), family_name = COALESCE(EXCLUDED.family_name, users.family_name), phone = COALESCE(EXCLUDED.phone, users.phone), role = EXCLUDED.role, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert identity user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert user identity fields: %w", err)
	}

	return nil
}

func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
