package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"welfareportal/internal"
	"welfareportal/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

func (s *Service) handleGetLogin(w http.ResponseWriter, r *http.Request) {
	if identityFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, "/schemes", http.StatusSeeOther)
		return
	}

	data := &types.LoginPageData{
		BasePageData: basePage(r, "Sign In"),
	}
	if r.URL.Query().Get("confirmed") == "true" {
		data.Message = "Your account is confirmed. Please sign in."
	}

	s.renderPage(w, r, "page.login", data)
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	data := &types.LoginPageData{
		BasePageData: basePage(r, "Sign In"),
		Email:        email,
	}

	if email == "" || password == "" {
		data.Error = "Email and password are required."
		s.renderPageStatus(w, r, http.StatusBadRequest, "page.login", data)
		return
	}

	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.config.CognitoClientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	}

	resp, err := s.cognito.InitiateAuth(ctx, input)
	if err != nil {
		s.logger.WithError(err).Info("login rejected")

		data.Error = "Invalid email or password."
		var notConfirmed *ctypes.UserNotConfirmedException
		if errors.As(err, &notConfirmed) {
			data.Error = "Please confirm your account before signing in."
		}

		s.renderPageStatus(w, r, http.StatusUnauthorized, "page.login", data)
		return
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		data.Error = "Login failed. Please try again."
		s.renderPageStatus(w, r, http.StatusUnauthorized, "page.login", data)
		return
	}

	accessToken := aws.ToString(resp.AuthenticationResult.AccessToken)
	expiresIn := int(resp.AuthenticationResult.ExpiresIn)

	identity, err := s.tokens.Verify(ctx, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("freshly issued access token failed verification")
		data.Error = "Login failed. Please try again."
		s.renderPageStatus(w, r, http.StatusUnauthorized, "page.login", data)
		return
	}
	if identity.Email == "" {
		identity.Email = email
	}

	// The user row only backs notifications, so a failed upsert does not block sign-in
	if err := s.users.UpsertFromIdentity(ctx, identity, ""); err != nil {
		s.logger.WithError(err).WithField("user_id", identity.UserID).Error("failed to upsert user on login")
	}

	encryptedToken, err := s.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.internalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   expiresIn,
		Path:     "/",
	})

	// Check to see if this login attempt was the result of an unauthed redirect
	redirectCookie, err := r.Cookie(internal.COOKIE_REDIRECT_NAME)
	if err == nil && strings.HasPrefix(redirectCookie.Value, "/") && !strings.HasPrefix(redirectCookie.Value, "//") {
		s.clearRedirectCookie(w)
		http.Redirect(w, r, redirectCookie.Value, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAccessTokenCookie(w)
	s.clearEligibilityCookie(w)

	identity := identityFromContext(r.Context())
	if identity.Authenticated() {
		s.logger.WithField("user_id", identity.UserID).Info("user logged out")
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Service) setRedirectCookie(w http.ResponseWriter, path string, age time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_REDIRECT_NAME,
		Value:    path,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(age.Seconds()),
	})
}

func (s *Service) clearRedirectCookie(w http.ResponseWriter) {
	clearCookie(w, internal.COOKIE_REDIRECT_NAME)
}

func (s *Service) clearAccessTokenCookie(w http.ResponseWriter) {
	clearCookie(w, internal.COOKIE_ACCESS_TOKEN_NAME)
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
