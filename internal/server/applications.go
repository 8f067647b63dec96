package server

import (
	"errors"
	"net/http"

	"welfareportal/pkg/types"

	"github.com/alexedwards/flow"
)

type ApplicationsPageData struct {
	types.BasePageData
	Applications []*types.Application
}

type ApplicationPageData struct {
	types.BasePageData
	Application *types.Application
	History     []*types.StatusChange
}

func (s *Service) handleApplications(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	applications, err := s.applications.ApplicationsByUser(r.Context(), identity.UserID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", identity.UserID).Error("failed to load applications")
		s.renderError(w, r, http.StatusInternalServerError, "We could not load your applications. Please try again.")
		return
	}

	data := &ApplicationsPageData{
		BasePageData: basePage(r, "My Applications"),
		Applications: applications,
	}

	s.renderPage(w, r, "page.applications", data)
}

func (s *Service) handleApplicationDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromContext(ctx)

	application, ok := s.loadApplication(w, r, flow.Param(ctx, "applicationID"))
	if !ok {
		return
	}

	// Someone else's application is reported as missing
	if application.UserID != identity.UserID && !identity.IsAdmin() {
		s.renderError(w, r, http.StatusNotFound, "Application not found.")
		return
	}

	history, err := s.history.HistoryByApplication(ctx, application.ID)
	if err != nil {
		s.logger.WithError(err).WithField("application_id", application.ID).Error("failed to load status history")
		history = nil
	}

	data := &ApplicationPageData{
		BasePageData: basePage(r, "Application"),
		Application:  application,
		History:      history,
	}

	s.renderPage(w, r, "page.application", data)
}

func (s *Service) loadApplication(w http.ResponseWriter, r *http.Request, applicationID string) (*types.Application, bool) {
	application, err := s.applications.Application(r.Context(), applicationID)
	if errors.Is(err, types.ErrApplicationNotFound) {
		s.renderError(w, r, http.StatusNotFound, "Application not found.")
		return nil, false
	}
	if err != nil {
		s.logger.WithError(err).WithField("application_id", applicationID).Error("failed to load application")
		s.renderError(w, r, http.StatusInternalServerError, "We could not load this application. Please try again.")
		return nil, false
	}
	return application, true
}
