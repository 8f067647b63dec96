package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"welfareportal/internal/metrics"
	"welfareportal/internal/notify"
	"welfareportal/internal/store"
	"welfareportal/internal/utils"
	"welfareportal/pkg/types"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotAdmin                = errors.New("administrator role required")
	ErrInvalidDecision         = errors.New("decision status must be approved, rejected or under_review")
	ErrRejectionReasonRequired = errors.New("a rejection reason is required")
	ErrInvalidTransition       = errors.New("status transition not allowed")
)

type ApplicationStore interface {
	Application(ctx context.Context, applicationID string) (*types.Application, error)
	UpdateReview(ctx context.Context, applicationID string, from types.ApplicationStatus, update store.ReviewUpdate) error
}

type HistoryStore interface {
	RecordChange(ctx context.Context, change *types.StatusChange) error
}

type Notifier interface {
	Broadcast(ctx context.Context, userID string, channels []notify.Channel, msg notify.Message) []notify.Result
}

type Reviewer struct {
	logger       logrus.FieldLogger
	applications ApplicationStore
	history      HistoryStore
	notifier     Notifier
	now          func() time.Time
}

func NewReviewer(logger logrus.FieldLogger, applications ApplicationStore, history HistoryStore, notifier Notifier) *Reviewer {
	return &Reviewer{
		logger:       logger,
		applications: applications,
		history:      history,
		notifier:     notifier,
		now:          time.Now,
	}
}

// ValidateDecision checks a decision on its own, before any application is
// loaded.
func ValidateDecision(decision types.ReviewDecision) error {
	switch decision.Status {
	case types.ApplicationStatusApproved, types.ApplicationStatusUnderReview:
		return nil
	case types.ApplicationStatusRejected:
		if strings.TrimSpace(decision.RejectionReason) == "" {
			return ErrRejectionReasonRequired
		}
		return nil
	}
	return fmt.Errorf("%w: got %q", ErrInvalidDecision, decision.Status)
}

// Decide applies an administrator's decision to an application and returns
// the updated record. The status history row and the applicant notification
// are written after the status update and do not fail the decision.
func (r *Reviewer) Decide(ctx context.Context, admin *types.Identity, applicationID string, decision types.ReviewDecision) (*types.Application, error) {
	if !admin.IsAdmin() {
		return nil, ErrNotAdmin
	}

	if err := ValidateDecision(decision); err != nil {
		return nil, err
	}

	application, err := r.applications.Application(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	from := application.Status
	if !from.CanTransitionTo(decision.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, decision.Status)
	}

	reviewedAt := r.now()
	update := store.ReviewUpdate{
		Status:          decision.Status,
		ReviewNotes:     utils.TrimmedPtr(decision.Notes),
		RejectionReason: nil,
		ReviewedBy:      admin.UserID,
		ReviewedAt:      reviewedAt,
	}
	if decision.Status == types.ApplicationStatusRejected {
		update.RejectionReason = utils.TrimmedPtr(decision.RejectionReason)
	}

	if err := r.applications.UpdateReview(ctx, applicationID, from, update); err != nil {
		return nil, fmt.Errorf("failed to update application %s: %w", applicationID, err)
	}

	metrics.ReviewDecisionsTotal.WithLabelValues(string(decision.Status)).Inc()

	logger := r.logger.WithFields(logrus.Fields{
		"application_id": applicationID,
		"reviewer_id":    admin.UserID,
		"from_status":    from,
		"to_status":      decision.Status,
	})
	logger.Info("application reviewed")

	application.Status = update.Status
	application.ReviewNotes = update.ReviewNotes
	application.RejectionReason = update.RejectionReason
	application.ReviewedBy = &admin.UserID
	application.ReviewedAt = &reviewedAt

	err = r.history.RecordChange(ctx, &types.StatusChange{
		ApplicationID: applicationID,
		FromStatus:    &from,
		ToStatus:      update.Status,
		ChangedBy:     admin.UserID,
		Notes:         update.ReviewNotes,
		Reason:        update.RejectionReason,
	})
	if err != nil {
		logger.WithError(err).Error("failed to record status change")
	}

	r.notifyApplicant(ctx, logger, application)

	return application, nil
}

func (r *Reviewer) notifyApplicant(ctx context.Context, logger logrus.FieldLogger, application *types.Application) {
	if r.notifier == nil {
		return
	}

	msg := DecisionMessage(application)
	results := r.notifier.Broadcast(ctx, application.UserID, []notify.Channel{notify.ChannelEmail, notify.ChannelSMS}, msg)
	for _, result := range results {
		if !result.Success {
			logger.WithError(result.Error).WithField("channel", result.Channel).Info("applicant not notified on channel")
		}
	}
}

// DecisionMessage is the notification sent to an applicant after review.
func DecisionMessage(application *types.Application) notify.Message {
	scheme := application.SchemeID
	if name, ok := application.Metadata["scheme_name"].(string); ok && name != "" {
		scheme = name
	}

	subject := fmt.Sprintf("Your application for %s is %s", scheme, strings.ToLower(application.Status.Label()))

	var body strings.Builder
	fmt.Fprintf(&body, "Your application %s for %s is now %s.", application.ID, scheme, application.Status.Label())
	if application.RejectionReason != nil {
		fmt.Fprintf(&body, " Reason: %s.", strings.TrimSuffix(*application.RejectionReason, "."))
	}
	if application.ReviewNotes != nil {
		fmt.Fprintf(&body, " Notes: %s", *application.ReviewNotes)
	}

	return notify.Message{Subject: subject, Body: body.String()}
}
