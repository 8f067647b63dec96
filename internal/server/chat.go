package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"welfareportal/internal/chat"
	"welfareportal/pkg/types"

	"github.com/alexedwards/flow"
)

// maxChatBody bounds the JSON body, history included.
const maxChatBody = 64 << 10

func (s *Service) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.assistant.Reply(r.Context(), req)
	s.writeChatResult(w, resp, err)
}

func (s *Service) handleSchemeChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.assistant.ReplyAboutScheme(r.Context(), flow.Param(r.Context(), "schemeID"), req)
	s.writeChatResult(w, resp, err)
}

func (s *Service) decodeChatRequest(w http.ResponseWriter, r *http.Request) (types.ChatRequest, bool) {
	var req types.ChatRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody))
	if err := dec.Decode(&req); err != nil {
		s.logger.WithError(err).Info("invalid chat request body")
		s.writeJSON(w, http.StatusBadRequest, types.ChatErrorResponse{Error: "invalid request body"})
		return req, false
	}

	return req, true
}

func (s *Service) writeChatResult(w http.ResponseWriter, resp *types.ChatResponse, err error) {
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, resp)
	case chat.IsValidationError(err):
		s.writeJSON(w, http.StatusBadRequest, types.ChatErrorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrUnavailable):
		s.writeJSON(w, http.StatusServiceUnavailable, types.ChatErrorResponse{Error: "the assistant is not available right now"})
	case errors.Is(err, types.ErrSchemeNotFound):
		s.writeJSON(w, http.StatusNotFound, types.ChatErrorResponse{Error: "scheme not found"})
	default:
		s.logger.WithError(err).Error("chat request failed")
		s.writeJSON(w, http.StatusBadGateway, types.ChatErrorResponse{Error: "the assistant could not answer, please try again"})
	}
}
