package server

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"welfareportal/internal"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuth_RedirectsToLogin(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, get("/schemes/pm-kisan/apply"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	redirect := cookieFrom(rec, internal.COOKIE_REDIRECT_NAME)
	require.NotNil(t, redirect)
	assert.Equal(t, "/schemes/pm-kisan/apply", redirect.Value)
}

func TestAuthenticate_RejectedTokenIsAnonymous(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, h.as(t, get("/applications"), "stale-token"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cleared := cookieFrom(rec, internal.COOKIE_ACCESS_TOKEN_NAME)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestHandlePostLogin(t *testing.T) {
	h := newHarness(t)

	var gotInput *cognitoidentityprovider.InitiateAuthInput
	h.cognito.initiate = func(in *cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
		gotInput = in
		return &cognitoidentityprovider.InitiateAuthOutput{
			AuthenticationResult: &ctypes.AuthenticationResultType{
				AccessToken: aws.String(citizenToken),
				ExpiresIn:   3600,
			},
		}, nil
	}

	req := postForm("/login", url.Values{"email": {"asha@example.org"}, "password": {"Correct-Horse-1"}})
	req.AddCookie(&http.Cookie{Name: internal.COOKIE_REDIRECT_NAME, Value: "/schemes/pm-kisan/apply"})

	rec := h.do(t, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/schemes/pm-kisan/apply", rec.Header().Get("Location"))
	assert.Equal(t, ctypes.AuthFlowTypeUserPasswordAuth, gotInput.AuthFlow)
	assert.Equal(t, "asha@example.org", gotInput.AuthParameters["USERNAME"])

	token := cookieFrom(rec, internal.COOKIE_ACCESS_TOKEN_NAME)
	require.NotNil(t, token)
	assert.Equal(t, 3600, token.MaxAge)
	assert.True(t, token.HttpOnly)

	require.Len(t, h.users.upserts, 1)
	assert.Equal(t, citizen.UserID, h.users.upserts[0].UserID)
}

func TestHandlePostLogin_Failures(t *testing.T) {
	tests := map[string]struct {
		err  error
		form url.Values
		code int
		want string
	}{
		"missing password": {
			form: url.Values{"email": {"asha@example.org"}},
			code: http.StatusBadRequest,
			want: "Email and password are required.",
		},
		"bad credentials": {
			err:  &ctypes.NotAuthorizedException{Message: aws.String("Incorrect username or password.")},
			form: url.Values{"email": {"asha@example.org"}, "password": {"nope"}},
			code: http.StatusUnauthorized,
			want: "Invalid email or password.",
		},
		"unconfirmed": {
			err:  &ctypes.UserNotConfirmedException{Message: aws.String("User is not confirmed.")},
			form: url.Values{"email": {"asha@example.org"}, "password": {"Correct-Horse-1"}},
			code: http.StatusUnauthorized,
			want: "Please confirm your account",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.cognito.initiate = func(*cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
				return nil, tc.err
			}

			rec := h.do(t, postForm("/login", tc.form))

			assert.Equal(t, tc.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
			assert.Nil(t, cookieFrom(rec, internal.COOKIE_ACCESS_TOKEN_NAME))
		})
	}
}

func TestHandlePostRegister(t *testing.T) {
	h := newHarness(t)

	var gotInput *cognitoidentityprovider.SignUpInput
	h.cognito.signUp = func(in *cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error) {
		gotInput = in
		return &cognitoidentityprovider.SignUpOutput{UserSub: aws.String("user-9")}, nil
	}

	rec := h.do(t, postForm("/register", url.Values{
		"given_name":       {"Asha"},
		"family_name":      {"Rao"},
		"email":            {"asha@example.org"},
		"phone":            {"+919876543210"},
		"password":         {"Correct-Horse-1"},
		"confirm_password": {"Correct-Horse-1"},
	}))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/register/confirm?email=asha%40example.org", rec.Header().Get("Location"))
	assert.Len(t, gotInput.UserAttributes, 4)

	require.Len(t, h.users.upserts, 1)
	assert.Equal(t, "user-9", h.users.upserts[0].UserID)
	assert.Equal(t, "Asha Rao", h.users.upserts[0].Name)
	assert.Equal(t, "+919876543210", h.users.phones[0])
}

func TestHandlePostRegister_UsernameExists(t *testing.T) {
	h := newHarness(t)
	h.cognito.signUp = func(*cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error) {
		return nil, &ctypes.UsernameExistsException{Message: aws.String("exists")}
	}

	rec := h.do(t, postForm("/register", url.Values{
		"given_name":       {"Asha"},
		"family_name":      {"Rao"},
		"email":            {"asha@example.org"},
		"password":         {"Correct-Horse-1"},
		"confirm_password": {"Correct-Horse-1"},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "An account with this email already exists.")
	assert.Empty(t, h.users.upserts)
}

func TestValidateRegisterInput(t *testing.T) {
	tests := map[string]struct {
		given, family, email, phone, password, confirm string
		wantFields                                     []string
	}{
		"valid": {
			given: "Asha", family: "Rao", email: "asha@example.org",
			password: "Correct-Horse-1", confirm: "Correct-Horse-1",
		},
		"everything missing": {
			wantFields: []string{"given_name", "family_name", "email", "password"},
		},
		"weak password and mismatch": {
			given: "Asha", family: "Rao", email: "asha@example.org",
			password: "short", confirm: "other",
			wantFields: []string{"password", "confirm_password"},
		},
		"phone without country code": {
			given: "Asha", family: "Rao", email: "asha@example.org", phone: "9876543210",
			password: "Correct-Horse-1", confirm: "Correct-Horse-1",
			wantFields: []string{"phone"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			errs := validateRegisterInput(tc.given, tc.family, tc.email, tc.phone, tc.password, tc.confirm)

			got := make([]string, 0, len(errs))
			for field := range errs {
				got = append(got, field)
			}
			assert.ElementsMatch(t, tc.wantFields, got)
		})
	}
}

func TestHandlePostRegisterConfirm(t *testing.T) {
	h := newHarness(t)
	h.cognito.confirmSignUp = func(in *cognitoidentityprovider.ConfirmSignUpInput) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
		if aws.ToString(in.ConfirmationCode) != "123456" {
			return nil, &ctypes.CodeMismatchException{Message: aws.String("mismatch")}
		}
		return &cognitoidentityprovider.ConfirmSignUpOutput{}, nil
	}

	rec := h.do(t, postForm("/register/confirm", url.Values{"email": {"asha@example.org"}, "code": {"000000"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid confirmation code.")

	rec = h.do(t, postForm("/register/confirm", url.Values{"email": {"asha@example.org"}, "code": {"123456"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?confirmed=true", rec.Header().Get("Location"))
}

func TestHandleLogout(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, h.as(t, postForm("/logout", nil), citizenToken))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	token := cookieFrom(rec, internal.COOKIE_ACCESS_TOKEN_NAME)
	require.NotNil(t, token)
	assert.Equal(t, -1, token.MaxAge)
}

func TestClaimStrings(t *testing.T) {
	assert.Equal(t, []string{"admin", "staff"}, claimStrings([]any{"admin", 7, "staff"}))
	assert.Equal(t, []string{"admin"}, claimStrings("admin"))
	assert.Nil(t, claimStrings(errors.New("not a claim")))
}
