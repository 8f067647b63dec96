package types

import (
	"fmt"
	"strings"
	"time"
)

type ApplicationStatus string

const (
	ApplicationStatusDraft       ApplicationStatus = "draft"
	ApplicationStatusSubmitted   ApplicationStatus = "submitted"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
)

var ApplicationStatuses = []ApplicationStatus{
	ApplicationStatusDraft,
	ApplicationStatusSubmitted,
	ApplicationStatusUnderReview,
	ApplicationStatusApproved,
	ApplicationStatusRejected,
}

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	status := ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusDraft,
		ApplicationStatusSubmitted,
		ApplicationStatusUnderReview,
		ApplicationStatusApproved,
		ApplicationStatusRejected:
		return true
	}
	return false
}

func (s ApplicationStatus) Terminal() bool {
	switch s {
	case ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	case ApplicationStatusDraft, ApplicationStatusSubmitted, ApplicationStatusUnderReview:
		return false
	}
	return false
}

// CanTransitionTo reports whether the review lifecycle allows moving from s
// to next. Approved and rejected are terminal.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	switch s {
	case ApplicationStatusDraft:
		return next == ApplicationStatusSubmitted
	case ApplicationStatusSubmitted:
		return next == ApplicationStatusUnderReview ||
			next == ApplicationStatusApproved ||
			next == ApplicationStatusRejected
	case ApplicationStatusUnderReview:
		return next == ApplicationStatusApproved ||
			next == ApplicationStatusRejected
	case ApplicationStatusApproved, ApplicationStatusRejected:
		return false
	}
	return false
}

func (s ApplicationStatus) Label() string {
	switch s {
	case ApplicationStatusDraft:
		return "Draft"
	case ApplicationStatusSubmitted:
		return "Submitted"
	case ApplicationStatusUnderReview:
		return "Under Review"
	case ApplicationStatusApproved:
		return "Approved"
	case ApplicationStatusRejected:
		return "Rejected"
	}
	return "Unknown"
}

type PersonalInfo struct {
	FullName    string `json:"fullName" form:"full_name"`
	Email       string `json:"email" form:"email"`
	Phone       string `json:"phone" form:"phone"`
	Address     string `json:"address" form:"address"`
	DateOfBirth string `json:"dateOfBirth" form:"date_of_birth"`
	Occupation  string `json:"occupation" form:"occupation"`
	Income      string `json:"income" form:"income"`
}

// MissingFields returns the required personal info fields that are empty
// after trimming, in form order.
func (p PersonalInfo) MissingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"fullName", p.FullName},
		{"email", p.Email},
		{"phone", p.Phone},
		{"address", p.Address},
		{"dateOfBirth", p.DateOfBirth},
	}

	missing := make([]string, 0)
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

func (p PersonalInfo) Complete() bool {
	return len(p.MissingFields()) == 0
}

// UploadedDocument describes a document stored in the blob store as part of
// a submitted application.
type UploadedDocument struct {
	Name             string    `json:"name"`
	StorageKey       string    `json:"storageKey"`
	OriginalFilename string    `json:"originalFilename"`
	SizeBytes        int64     `json:"sizeBytes"`
	ContentType      string    `json:"contentType"`
	UploadedAt       time.Time `json:"uploadedAt"`
}

type Application struct {
	ID              string             `db:"id"`
	UserID          string             `db:"user_id"`
	SchemeID        string             `db:"scheme_id"`
	Status          ApplicationStatus  `db:"status"`
	PersonalInfo    PersonalInfo       `db:"personal_info"`
	Documents       []UploadedDocument `db:"documents"`
	Metadata        map[string]any     `db:"metadata"`
	IdempotencyKey  *string            `db:"idempotency_key"`
	ReviewNotes     *string            `db:"review_notes"`
	RejectionReason *string            `db:"rejection_reason"`
	ReviewedBy      *string            `db:"reviewed_by"`
	ReviewedAt      *time.Time         `db:"reviewed_at"`
	SubmittedAt     *time.Time         `db:"submitted_at"`
	CreatedAt       time.Time          `db:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at"`
}

// Validate checks a row read from the record store. Rows failing it are
// rejected at the boundary instead of being handled field by field later.
func (a *Application) Validate() error {
	if a.ID == "" || a.UserID == "" || a.SchemeID == "" {
		return fmt.Errorf("%w: application missing identifiers", ErrMalformedRow)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: application %s has status %q", ErrMalformedRow, a.ID, a.Status)
	}
	if a.Status != ApplicationStatusDraft && a.SubmittedAt == nil {
		return fmt.Errorf("%w: application %s is %s without submitted_at", ErrMalformedRow, a.ID, a.Status)
	}
	for _, doc := range a.Documents {
		if doc.StorageKey == "" {
			return fmt.Errorf("%w: application %s has a document without storage key", ErrMalformedRow, a.ID)
		}
	}
	return nil
}

// StatusChange is one row of an application's status history.
type StatusChange struct {
	ID            string             `db:"id"`
	ApplicationID string             `db:"application_id"`
	FromStatus    *ApplicationStatus `db:"from_status"`
	ToStatus      ApplicationStatus  `db:"to_status"`
	ChangedBy     string             `db:"changed_by"`
	Notes         *string            `db:"notes"`
	Reason        *string            `db:"reason"`
	CreatedAt     time.Time          `db:"created_at"`
}
