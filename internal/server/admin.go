package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"welfareportal/internal/review"
	"welfareportal/pkg/types"

	"github.com/alexedwards/flow"
)

const adminListLimit = 200

type AdminApplicationsPageData struct {
	types.BasePageData
	Status       types.ApplicationStatus
	Statuses     []types.ApplicationStatus
	Applications []*types.Application
}

// DocumentLink is an uploaded document with a short-lived download URL.
type DocumentLink struct {
	types.UploadedDocument
	URL string
}

type AdminApplicationPageData struct {
	types.BasePageData
	Application *types.Application
	Documents   []DocumentLink
	History     []*types.StatusChange
	Decisions   []types.ApplicationStatus
}

func (s *Service) handleAdminApplications(w http.ResponseWriter, r *http.Request) {
	status := types.ApplicationStatusSubmitted
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := types.ParseApplicationStatus(raw)
		if err != nil {
			s.renderError(w, r, http.StatusBadRequest, "Unknown application status.")
			return
		}
		status = parsed
	}

	applications, err := s.applications.ApplicationsByStatus(r.Context(), status, adminListLimit)
	if err != nil {
		s.logger.WithError(err).WithField("status", status).Error("failed to load applications for review")
		s.renderError(w, r, http.StatusInternalServerError, "We could not load applications. Please try again.")
		return
	}

	data := &AdminApplicationsPageData{
		BasePageData: basePage(r, "Review Applications"),
		Status:       status,
		Statuses:     types.ApplicationStatuses,
		Applications: applications,
	}

	s.renderPage(w, r, "page.admin.applications", data)
}

func (s *Service) handleAdminApplicationDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	application, ok := s.loadApplication(w, r, flow.Param(ctx, "applicationID"))
	if !ok {
		return
	}

	expiry := time.Duration(s.config.PresignExpirySec) * time.Second
	documents := make([]DocumentLink, 0, len(application.Documents))
	for _, doc := range application.Documents {
		link := DocumentLink{UploadedDocument: doc}

		url, err := s.presigner.PresignGet(ctx, doc.StorageKey, expiry)
		if err != nil {
			s.logger.WithError(err).WithField("storage_key", doc.StorageKey).Error("failed to presign document")
		} else {
			link.URL = url
		}

		documents = append(documents, link)
	}

	history, err := s.history.HistoryByApplication(ctx, application.ID)
	if err != nil {
		s.logger.WithError(err).WithField("application_id", application.ID).Error("failed to load status history")
	}

	decisions := make([]types.ApplicationStatus, 0, 3)
	for _, next := range []types.ApplicationStatus{
		types.ApplicationStatusUnderReview,
		types.ApplicationStatusApproved,
		types.ApplicationStatusRejected,
	} {
		if application.Status.CanTransitionTo(next) {
			decisions = append(decisions, next)
		}
	}

	data := &AdminApplicationPageData{
		BasePageData: basePage(r, "Review Application"),
		Application:  application,
		Documents:    documents,
		History:      history,
		Decisions:    decisions,
	}

	s.renderPage(w, r, "page.admin.application", data)
}

func (s *Service) handleAdminReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicationID := flow.Param(ctx, "applicationID")
	detailPath := fmt.Sprintf("/admin/applications/%s", applicationID)

	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, detailPath, "We could not read the form. Please try again.")
		return
	}

	var decision types.ReviewDecision
	if err := decoder.Decode(&decision, r.PostForm); err != nil {
		s.logger.WithError(err).Info("failed to decode review decision")
		s.redirectWithError(w, r, detailPath, "We could not read the form. Please try again.")
		return
	}

	application, err := s.reviewer.Decide(ctx, identityFromContext(ctx), applicationID, decision)
	if err != nil {
		msg, status := reviewErrorMessage(err)
		if status == http.StatusNotFound || status == http.StatusForbidden {
			s.renderError(w, r, status, msg)
			return
		}
		if status >= http.StatusInternalServerError {
			s.logger.WithError(err).WithField("application_id", applicationID).Error("review decision failed")
		}
		s.redirectWithError(w, r, detailPath, msg)
		return
	}

	s.redirectWithNotice(w, r, detailPath, fmt.Sprintf("Application marked %s.", application.Status.Label()))
}

func reviewErrorMessage(err error) (string, int) {
	switch {
	case errors.Is(err, review.ErrNotAdmin):
		return "You do not have access to review applications.", http.StatusForbidden
	case errors.Is(err, types.ErrApplicationNotFound):
		return "Application not found.", http.StatusNotFound
	case errors.Is(err, review.ErrRejectionReasonRequired):
		return "Please give a reason for the rejection.", http.StatusBadRequest
	case errors.Is(err, review.ErrInvalidDecision):
		return "Choose approve, reject or under review.", http.StatusBadRequest
	case errors.Is(err, review.ErrInvalidTransition):
		return "This application can no longer move to that status.", http.StatusConflict
	case errors.Is(err, types.ErrStaleStatus):
		return "Another reviewer changed this application. Please check it again.", http.StatusConflict
	}
	return "We could not save the decision. Please try again.", http.StatusInternalServerError
}
