package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"

	"welfareportal/pkg/types"
)

func (s *Service) renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) error {
	return s.renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

func (s *Service) renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) error {
	identity := identityFromContext(r.Context())

	if setter, ok := data.(types.NavbarDataSetter); ok {
		setter.SetNavbarData(types.NavbarData{
			IsAuthenticated: identity.Authenticated(),
			IsAdmin:         identity.IsAdmin(),
			UserID:          identity.UserID,
			UserEmail:       identity.Email,
			UserName:        identity.Name,
		})
	}

	// Render into a buffer so a template error never leaves a half written page
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (s *Service) renderPage(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	s.renderPageStatus(w, r, http.StatusOK, templateName, data)
}

func (s *Service) renderPageStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	if err := s.renderTemplateStatus(w, r, status, templateName, data); err != nil {
		s.logger.WithError(err).WithField("template", templateName).Error("failed to render page")
		s.internalServerError(w)
	}
}

func (s *Service) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := &types.ErrorPageData{
		BasePageData: types.BasePageData{Title: http.StatusText(status)},
		Status:       status,
		Message:      message,
	}

	if err := s.renderTemplateStatus(w, r, status, "page.error", data); err != nil {
		s.logger.WithError(err).Error("failed to render error page")
		http.Error(w, message, status)
	}
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (s *Service) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	v := url.Values{}
	v.Set("notice", notice)
	http.Redirect(w, r, path+"?"+v.Encode(), http.StatusSeeOther)
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, path, msg string) {
	v := url.Values{}
	v.Set("error", msg)
	http.Redirect(w, r, path+"?"+v.Encode(), http.StatusSeeOther)
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode json response")
	}
}

func basePage(r *http.Request, title string) types.BasePageData {
	q := r.URL.Query()
	return types.BasePageData{
		Title:  title,
		Notice: q.Get("notice"),
		Error:  q.Get("error"),
	}
}
