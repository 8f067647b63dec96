package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "welfare_access_token"
	COOKIE_REDIRECT_NAME     = "welfare_redirect"
	COOKIE_ELIGIBILITY_NAME  = "welfare_eligibility"
)
