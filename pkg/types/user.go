package types

import "time"

type Role string

const (
	RoleCitizen Role = "citizen"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID         string    `db:"id"`
	Email      *string   `db:"email"`
	GivenName  *string   `db:"given_name"`
	FamilyName *string   `db:"family_name"`
	Phone      *string   `db:"phone"`
	Role       Role      `db:"role"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Identity is the current user as seen by the auth provider.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   Role
}

func (i *Identity) Authenticated() bool {
	return i != nil && i.UserID != ""
}

func (i *Identity) IsAdmin() bool {
	return i.Authenticated() && i.Role == RoleAdmin
}
