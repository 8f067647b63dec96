package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"welfareportal/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

func (s *Service) handleGetRegister(w http.ResponseWriter, r *http.Request) {
	if identityFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := &types.RegisterPageData{
		BasePageData: basePage(r, "Create Account"),
	}

	s.renderPage(w, r, "page.register", data)
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	givenName := strings.TrimSpace(r.FormValue("given_name"))
	familyName := strings.TrimSpace(r.FormValue("family_name"))
	email := strings.TrimSpace(r.FormValue("email"))
	phone := strings.TrimSpace(r.FormValue("phone"))
	password := r.FormValue("password")
	confirmPassword := r.FormValue("confirm_password")

	data := &types.RegisterPageData{
		BasePageData: types.BasePageData{Title: "Create Account"},
		GivenName:    givenName,
		FamilyName:   familyName,
		Email:        email,
		Phone:        phone,
	}

	data.FieldErrors = validateRegisterInput(givenName, familyName, email, phone, password, confirmPassword)
	if len(data.FieldErrors) > 0 {
		s.logger.WithField("field_errors", data.FieldErrors).Info("validation errors during registration")

		data.Error = "Please fix the highlighted fields."
		s.renderPageStatus(w, r, http.StatusBadRequest, "page.register", data)
		return
	}

	attributes := []ctypes.AttributeType{
		{Name: aws.String("email"), Value: aws.String(email)},
		{Name: aws.String("given_name"), Value: aws.String(givenName)},
		{Name: aws.String("family_name"), Value: aws.String(familyName)},
	}
	if phone != "" {
		attributes = append(attributes, ctypes.AttributeType{Name: aws.String("phone_number"), Value: aws.String(phone)})
	}

	input := &cognitoidentityprovider.SignUpInput{
		ClientId:       aws.String(s.config.CognitoClientID),
		Username:       aws.String(email), // use email as username
		Password:       aws.String(password),
		UserAttributes: attributes,
	}

	out, err := s.cognito.SignUp(ctx, input)
	if err != nil {
		s.logger.WithError(err).Error("failed to signup user")

		data.Error, data.FieldErrors = s.mapCognitoSignUpError(err)
		s.renderPageStatus(w, r, http.StatusBadRequest, "page.register", data)
		return
	}

	// Record the contact details now, since the phone number is not on the access token
	if sub := aws.ToString(out.UserSub); sub != "" {
		identity := &types.Identity{
			UserID: sub,
			Email:  email,
			Name:   strings.TrimSpace(givenName + " " + familyName),
			Role:   types.RoleCitizen,
		}
		if err := s.users.UpsertFromIdentity(ctx, identity, phone); err != nil {
			s.logger.WithError(err).WithField("user_id", sub).Error("failed to record registered user")
		}
	}

	v := url.Values{}
	v.Set("email", email)

	http.Redirect(w, r, fmt.Sprintf("/register/confirm?%s", v.Encode()), http.StatusSeeOther)
}

func (s *Service) handleGetRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	data := &types.ConfirmRegisterPageData{
		BasePageData: basePage(r, "Confirm Your Account"),
		Email:        strings.TrimSpace(r.URL.Query().Get("email")),
	}

	s.renderPage(w, r, "page.register.confirm", data)
}

func (s *Service) handlePostRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	code := strings.TrimSpace(r.FormValue("code"))

	data := &types.ConfirmRegisterPageData{
		BasePageData: types.BasePageData{Title: "Confirm Your Account"},
		Email:        email,
	}

	input := &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(s.config.CognitoClientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	}

	_, err := s.cognito.ConfirmSignUp(r.Context(), input)
	if err != nil {
		s.logger.WithError(err).Error("failed to confirm user signup")

		var codeMismatch *ctypes.CodeMismatchException
		var expired *ctypes.ExpiredCodeException
		switch {
		case errors.As(err, &codeMismatch):
			data.Error = "Invalid confirmation code. Please check the code and try again."
		case errors.As(err, &expired):
			data.Error = "This confirmation code has expired. Please register again to get a new one."
		default:
			data.Error = "Unable to confirm account. Please try again."
		}

		s.renderPageStatus(w, r, http.StatusBadRequest, "page.register.confirm", data)
		return
	}

	http.Redirect(w, r, "/login?confirmed=true", http.StatusSeeOther)
}

var (
	hasUpperReg  = regexp.MustCompile(`[A-Z]`)
	hasLowerReg  = regexp.MustCompile(`[a-z]`)
	hasDigitReg  = regexp.MustCompile(`[0-9]`)
	hasSymbolReg = regexp.MustCompile(`[^A-Za-z0-9]`)
	e164Reg      = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
)

func validateRegisterInput(givenName, familyName, email, phone, password, confirmPassword string) map[string]string {
	errs := map[string]string{}

	if strings.TrimSpace(givenName) == "" {
		errs["given_name"] = "First name is required."
	}

	if strings.TrimSpace(familyName) == "" {
		errs["family_name"] = "Last name is required."
	}

	email = strings.TrimSpace(email)
	if email == "" {
		errs["email"] = "Email is required."
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = "Enter a valid email address."
	}

	// optional, used for SMS updates
	if phone = strings.TrimSpace(phone); phone != "" && !e164Reg.MatchString(phone) {
		errs["phone"] = "Enter the phone number with country code, for example +919876543210."
	}

	if password != confirmPassword {
		errs["confirm_password"] = "Passwords do not match."
	}

	hasUpper := hasUpperReg.MatchString(password)
	hasLower := hasLowerReg.MatchString(password)
	hasDigit := hasDigitReg.MatchString(password)
	hasSymbol := hasSymbolReg.MatchString(password)

	if len(password) < 12 || !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		errs["password"] = "Password must be at least 12 characters and include uppercase, lowercase, number, and symbol."
	}

	return errs
}

func (s *Service) mapCognitoSignUpError(err error) (string, map[string]string) {
	fieldErrs := map[string]string{}

	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		fieldErrs["password"] = "Password must include uppercase, lowercase, number, and symbol (min 12)."
		return "Please fix the highlighted fields.", fieldErrs
	}

	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		fieldErrs["email"] = "An account with this email already exists."
		return "Try logging in instead.", fieldErrs
	}

	var invalidParam *ctypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return "Some details are invalid. Please review and try again.", fieldErrs
	}

	s.logger.WithError(err).Error("unhandled cognito signup error")

	return "Unable to create account right now. Please try again.", fieldErrs
}
