package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"welfareportal/internal/catalog"
	"welfareportal/pkg/types"

	"github.com/alexedwards/flow"
)

// catalogLimit bounds how many active schemes a listing page loads.
const catalogLimit = 500

type HomePageData struct {
	types.BasePageData
	Featured   []*types.Scheme
	Categories []string
}

type SchemesPageData struct {
	types.BasePageData
	Filter     types.SchemeFilter
	Schemes    []*types.Scheme
	Categories []string
	Total      int
}

type SchemePageData struct {
	types.BasePageData
	Scheme    *types.Scheme
	Documents []*types.SchemeDocument
}

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	schemes, err := s.schemes.ActiveSchemes(r.Context(), catalogLimit)
	if err != nil {
		s.logger.WithError(err).Error("failed to load schemes for home page")
		s.renderError(w, r, http.StatusInternalServerError, "We could not load the scheme catalog. Please try again.")
		return
	}

	featured := schemes
	if len(featured) > 6 {
		featured = featured[:6]
	}

	data := &HomePageData{
		BasePageData: basePage(r, "Welfare Schemes"),
		Featured:     featured,
		Categories:   catalog.Categories(schemes),
	}

	s.renderPage(w, r, "page.home", data)
}

func (s *Service) handleSchemes(w http.ResponseWriter, r *http.Request) {
	filter, err := catalog.FilterFromQuery(r.URL.Query())
	if err != nil {
		s.logger.WithError(err).Info("invalid scheme filter")
		filter = types.SchemeFilter{Category: types.CategoryAll}
	}

	schemes, err := s.schemes.ActiveSchemes(r.Context(), catalogLimit)
	if err != nil {
		s.logger.WithError(err).Error("failed to load schemes")
		s.renderError(w, r, http.StatusInternalServerError, "We could not load the scheme catalog. Please try again.")
		return
	}

	data := &SchemesPageData{
		BasePageData: basePage(r, "Find Schemes"),
		Filter:       filter,
		Schemes:      catalog.FilterSchemes(schemes, filter),
		Categories:   catalog.Categories(schemes),
		Total:        len(schemes),
	}

	s.renderPage(w, r, "page.schemes", data)
}

func (s *Service) handleSchemeDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scheme, ok := s.loadScheme(w, r, flow.Param(ctx, "schemeID"))
	if !ok {
		return
	}

	documents, err := s.documents.DocumentRequirements(ctx, scheme.ID)
	if err != nil {
		s.logger.WithError(err).WithField("scheme_id", scheme.ID).Error("failed to load document requirements")
		s.renderError(w, r, http.StatusInternalServerError, "We could not load this scheme. Please try again.")
		return
	}

	data := &SchemePageData{
		BasePageData: basePage(r, scheme.Title),
		Scheme:       scheme,
		Documents:    documents,
	}

	s.renderPage(w, r, "page.scheme", data)
}

// loadScheme fetches an active scheme, writing the error page itself when it
// cannot.
func (s *Service) loadScheme(w http.ResponseWriter, r *http.Request, schemeID string) (*types.Scheme, bool) {
	scheme, err := s.schemes.Scheme(r.Context(), schemeID)
	if errors.Is(err, types.ErrSchemeNotFound) || (err == nil && !scheme.IsActive) {
		s.renderError(w, r, http.StatusNotFound, "This scheme does not exist or is no longer open.")
		return nil, false
	}
	if err != nil {
		s.logger.WithError(err).WithField("scheme_id", schemeID).Error("failed to load scheme")
		s.renderError(w, r, http.StatusInternalServerError, "We could not load this scheme. Please try again.")
		return nil, false
	}
	return scheme, true
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Drafts   int    `json:"drafts"`
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Drafts: s.drafts.Len()}
	status := http.StatusOK

	if err := s.health.Ping(ctx); err != nil {
		s.logger.WithError(err).Error("health check database ping failed")
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, resp)
}
