package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"welfareportal/internal/wizard"
	"welfareportal/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/sirupsen/logrus"
)

// multipartMemory is the in-memory budget for parsing an upload form. The
// file part itself is read through a limit of MaxDocumentSize+1.
const multipartMemory = 8 << 20

type ApplyPageData struct {
	types.BasePageData
	Scheme           *types.Scheme
	Step             int
	StepName         string
	StepCount        int
	Personal         types.PersonalInfo
	Slots            []wizard.Slot
	MissingFields    []string
	MissingDocuments []string
	CanAdvance       bool
	Submitting       bool
}

func (s *Service) handleGetApply(w http.ResponseWriter, r *http.Request) {
	scheme, draft, ok := s.openDraft(w, r)
	if !ok {
		return
	}

	s.renderApply(w, r, scheme, draft)
}

func (s *Service) handlePostApplyPersonal(w http.ResponseWriter, r *http.Request) {
	scheme, draft, ok := s.openDraft(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		s.redirectToApply(w, r, scheme.ID, "We could not read the form. Please try again.")
		return
	}

	var info types.PersonalInfo
	if err := decoder.Decode(&info, r.PostForm); err != nil {
		s.logger.WithError(err).Info("failed to decode personal info form")
		s.redirectToApply(w, r, scheme.ID, "We could not read the form. Please try again.")
		return
	}

	draft.SetPersonalInfo(info)

	if draft.StepName() != wizard.StepPersonalInfo {
		s.redirectToApply(w, r, scheme.ID, "")
		return
	}

	if draft.Next() == wizard.MoveBlocked {
		missing := info.MissingFields()
		s.logger.WithField("missing", missing).Info("personal info incomplete")

		data := s.applyPageData(r, scheme, draft)
		data.Error = "Please complete all required personal details."
		s.renderPageStatus(w, r, http.StatusBadRequest, "page.apply", data)
		return
	}

	s.redirectToApply(w, r, scheme.ID, "")
}

func (s *Service) handlePostApplyDocument(w http.ResponseWriter, r *http.Request) {
	scheme, draft, ok := s.openDraft(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, wizard.MaxDocumentSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.logger.WithError(err).Info("failed to parse document upload")

		msg := wizard.RejectTooLarge.Message()
		if errors.Is(err, http.ErrNotMultipart) {
			msg = "Choose a file to upload."
		}
		s.redirectToApply(w, r, scheme.ID, msg)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	index, err := strconv.Atoi(r.FormValue("slot"))
	if err != nil {
		s.redirectToApply(w, r, scheme.ID, "Choose which document you are uploading.")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		s.redirectToApply(w, r, scheme.ID, "Choose a file to upload.")
		return
	}
	defer func() { _ = part.Close() }()

	// One byte past the limit is enough for the validator to reject it
	data, err := io.ReadAll(io.LimitReader(part, wizard.MaxDocumentSize+1))
	if err != nil {
		s.logger.WithError(err).Error("failed to read uploaded document")
		s.redirectToApply(w, r, scheme.ID, "We could not read that file. Please try again.")
		return
	}

	file := &wizard.File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}

	verdict, err := draft.Attach(index, file)
	if errors.Is(err, wizard.ErrSlotNotFound) {
		s.redirectToApply(w, r, scheme.ID, "That document is not part of this application.")
		return
	}

	logger := s.logger.WithFields(logrus.Fields{
		"scheme_id":    scheme.ID,
		"slot":         index,
		"size_bytes":   file.Size(),
		"content_type": file.ContentType,
	})

	if !verdict.Valid {
		logger.WithField("reason", verdict.Reason).Info("document rejected")
		s.redirectToApply(w, r, scheme.ID, verdict.Reason.Message())
		return
	}

	logger.Debug("document attached to draft")
	s.redirectToApply(w, r, scheme.ID, "")
}

func (s *Service) handlePostApplyRemoveDocument(w http.ResponseWriter, r *http.Request) {
	scheme, draft, ok := s.openDraft(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(flow.Param(r.Context(), "slot"))
	if err != nil || draft.Remove(index) != nil {
		s.redirectToApply(w, r, scheme.ID, "That document is not part of this application.")
		return
	}

	s.redirectToApply(w, r, scheme.ID, "")
}

func (s *Service) handlePostApplyBack(w http.ResponseWriter, r *http.Request) {
	scheme, draft, ok := s.openDraft(w, r)
	if !ok {
		return
	}

	draft.Back()
	s.redirectToApply(w, r, scheme.ID, "")
}

func (s *Service) handlePostApplyNext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scheme, draft, ok := s.openDraft(w, r)
	if !ok {
		return
	}

	switch draft.Next() {
	case wizard.MoveBlocked:
		msg := "Please complete this step before continuing."
		step := draft.StepName()
		if step == wizard.StepSummary && !draft.PersonalInfo().Complete() {
			msg = "Please complete all required personal details."
		}
		if missing := draft.MissingDocuments(); step != wizard.StepPersonalInfo && len(missing) > 0 {
			msg = "Please upload: " + strings.Join(missing, ", ") + "."
		}
		if draft.Submitting() {
			msg = wizard.UserMessage(wizard.ErrSubmissionInProgress)
		}
		s.redirectToApply(w, r, scheme.ID, msg)
		return
	case wizard.MoveAdvanced:
		s.redirectToApply(w, r, scheme.ID, "")
		return
	case wizard.MoveSubmit:
	}

	identity := identityFromContext(ctx)

	application, err := s.assembler.Submit(ctx, draft, scheme, identity)
	if err != nil {
		if errors.Is(err, wizard.ErrNotAuthenticated) {
			s.redirectToLogin(w, r)
			return
		}

		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":   identity.UserID,
			"scheme_id": scheme.ID,
		}).Info("application submission failed")

		s.redirectToApply(w, r, scheme.ID, wizard.UserMessage(err))
		return
	}

	draft.Reset()
	s.drafts.Discard(identity.UserID, scheme.ID)

	s.redirectWithNotice(w, r, fmt.Sprintf("/applications/%s", application.ID), "Your application has been submitted.")
}

func (s *Service) handlePostApplyCancel(w http.ResponseWriter, r *http.Request) {
	schemeID := flow.Param(r.Context(), "schemeID")
	identity := identityFromContext(r.Context())

	draft, ok := s.drafts.Get(identity.UserID, schemeID)
	s.drafts.Discard(identity.UserID, schemeID)

	path := fmt.Sprintf("/schemes/%s", schemeID)
	if !ok || draft.Empty() {
		http.Redirect(w, r, path, http.StatusSeeOther)
		return
	}

	s.redirectWithNotice(w, r, path, "Your application was cancelled.")
}

// openDraft loads the scheme in the URL and the signed-in user's draft for
// it, creating the draft on first visit.
func (s *Service) openDraft(w http.ResponseWriter, r *http.Request) (*types.Scheme, *wizard.Draft, bool) {
	ctx := r.Context()
	identity := identityFromContext(ctx)

	scheme, ok := s.loadScheme(w, r, flow.Param(ctx, "schemeID"))
	if !ok {
		return nil, nil, false
	}

	if draft, ok := s.drafts.Get(identity.UserID, scheme.ID); ok {
		return scheme, draft, true
	}

	requirements, err := s.documents.DocumentRequirements(ctx, scheme.ID)
	if err != nil {
		s.logger.WithError(err).WithField("scheme_id", scheme.ID).Error("failed to load document requirements")
		s.renderError(w, r, http.StatusInternalServerError, "We could not start your application. Please try again.")
		return nil, nil, false
	}

	draft := s.drafts.Open(identity.UserID, scheme.ID, func() *wizard.Draft {
		d := wizard.NewDraft(scheme.ID, requirements)
		d.SetPersonalInfo(types.PersonalInfo{FullName: identity.Name, Email: identity.Email})
		return d
	})

	return scheme, draft, true
}

func (s *Service) applyPageData(r *http.Request, scheme *types.Scheme, draft *wizard.Draft) *ApplyPageData {
	personal := draft.PersonalInfo()

	return &ApplyPageData{
		BasePageData:     basePage(r, "Apply: "+scheme.Title),
		Scheme:           scheme,
		Step:             draft.Step(),
		StepName:         draft.StepName(),
		StepCount:        draft.StepCount(),
		Personal:         personal,
		Slots:            draft.Slots(),
		MissingFields:    personal.MissingFields(),
		MissingDocuments: draft.MissingDocuments(),
		CanAdvance:       draft.CanAdvance(),
		Submitting:       draft.Submitting(),
	}
}

func (s *Service) renderApply(w http.ResponseWriter, r *http.Request, scheme *types.Scheme, draft *wizard.Draft) {
	s.renderPage(w, r, "page.apply", s.applyPageData(r, scheme, draft))
}

func (s *Service) redirectToApply(w http.ResponseWriter, r *http.Request, schemeID, errMsg string) {
	path := fmt.Sprintf("/schemes/%s/apply", schemeID)
	if errMsg == "" {
		http.Redirect(w, r, path, http.StatusSeeOther)
		return
	}
	s.redirectWithError(w, r, path, errMsg)
}
