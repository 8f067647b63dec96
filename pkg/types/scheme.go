package types

import "time"

// Scheme is a government welfare program.
type Scheme struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
	Ministry    *string   `db:"ministry"`
	Benefits    *string   `db:"benefits"`
	Eligibility *string   `db:"eligibility"`
	State       *string   `db:"state"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// SchemeDocument is one document an applicant must (or may) attach.
type SchemeDocument struct {
	SchemeID     string `db:"scheme_id"`
	Name         string `db:"name"`
	Required     bool   `db:"required"`
	DisplayOrder int    `db:"display_order"`
}

const CategoryAll = "all"

// SchemeFilter is the filter state of the find-schemes page. Only Category
// and SearchQuery narrow results; the demographic fields are carried so the
// form round-trips.
type SchemeFilter struct {
	Category    string `form:"category"`
	SearchQuery string `form:"q"`
	Age         string `form:"age"`
	Gender      string `form:"gender"`
	Caste       string `form:"caste"`
	Income      string `form:"income"`
	State       string `form:"state"`
	Occupation  string `form:"occupation"`
}
