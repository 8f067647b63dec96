package server

import (
	"net/http"

	"welfareportal/internal"
	"welfareportal/internal/catalog"
	"welfareportal/internal/wizard"
	"welfareportal/pkg/types"
)

const eligibilityCookieAge = 24 * 60 * 60

// eligibilityState is what the eligibility cookie carries between requests.
type eligibilityState struct {
	Answers types.EligibilityAnswers
	Step    int
}

type EligibilityPageData struct {
	types.BasePageData
	Step       int
	StepCount  int
	Question   wizard.Question
	Answer     string
	IsFirst    bool
	IsLast     bool
	CanAdvance bool
}

func (s *Service) handleGetEligibility(w http.ResponseWriter, r *http.Request) {
	s.renderEligibility(w, r, s.loadEligibility(r), "")
}

func (s *Service) handlePostEligibilityNext(w http.ResponseWriter, r *http.Request) {
	e := s.loadEligibility(r)
	e.SetAnswer(r.FormValue("answer"))

	switch e.Next() {
	case wizard.MoveBlocked:
		s.saveEligibility(w, e)
		s.renderEligibility(w, r, e, "Please choose an answer to continue.")
	case wizard.MoveAdvanced:
		s.saveEligibility(w, e)
		http.Redirect(w, r, "/eligibility", http.StatusSeeOther)
	case wizard.MoveSubmit:
		s.clearEligibilityCookie(w)
		http.Redirect(w, r, "/schemes?"+catalog.Query(e.Filter()).Encode(), http.StatusSeeOther)
	}
}

func (s *Service) handlePostEligibilityBack(w http.ResponseWriter, r *http.Request) {
	e := s.loadEligibility(r)
	e.Back()
	s.saveEligibility(w, e)
	http.Redirect(w, r, "/eligibility", http.StatusSeeOther)
}

func (s *Service) handlePostEligibilityReset(w http.ResponseWriter, r *http.Request) {
	s.clearEligibilityCookie(w)
	http.Redirect(w, r, "/eligibility", http.StatusSeeOther)
}

func (s *Service) renderEligibility(w http.ResponseWriter, r *http.Request, e *wizard.Eligibility, errMsg string) {
	data := &EligibilityPageData{
		BasePageData: basePage(r, "Check Your Eligibility"),
		Step:         e.Step(),
		StepCount:    e.StepCount(),
		Question:     e.Question(),
		Answer:       e.Answer(),
		IsFirst:      e.Step() == 1,
		IsLast:       e.Step() == e.StepCount(),
		CanAdvance:   e.CanAdvance(),
	}
	status := http.StatusOK
	if errMsg != "" {
		data.Error = errMsg
		status = http.StatusBadRequest
	}

	s.renderPageStatus(w, r, status, "page.eligibility", data)
}

// loadEligibility restores the wizard from its cookie. A missing or
// tampered cookie starts over.
func (s *Service) loadEligibility(r *http.Request) *wizard.Eligibility {
	cookie, err := r.Cookie(internal.COOKIE_ELIGIBILITY_NAME)
	if err != nil {
		return wizard.NewEligibility()
	}

	var state eligibilityState
	if err := s.cookie.Decode(internal.COOKIE_ELIGIBILITY_NAME, cookie.Value, &state); err != nil {
		s.logger.WithError(err).Info("discarding unreadable eligibility cookie")
		return wizard.NewEligibility()
	}

	return wizard.RestoreEligibility(state.Answers, state.Step)
}

func (s *Service) saveEligibility(w http.ResponseWriter, e *wizard.Eligibility) {
	encoded, err := s.cookie.Encode(internal.COOKIE_ELIGIBILITY_NAME, eligibilityState{
		Answers: e.Answers(),
		Step:    e.Step(),
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to encode eligibility cookie")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ELIGIBILITY_NAME,
		Value:    encoded,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   eligibilityCookieAge,
	})
}

func (s *Service) clearEligibilityCookie(w http.ResponseWriter) {
	clearCookie(w, internal.COOKIE_ELIGIBILITY_NAME)
}
