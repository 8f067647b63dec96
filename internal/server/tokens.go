package server

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"welfareportal/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

var ErrTokenMissingSubject = errors.New("token has no subject")

// JWKSVerifier checks Cognito access tokens against the user pool's cached
// key set.
type JWKSVerifier struct {
	cache      *jwk.Cache
	jwksURL    string
	adminGroup string
}

func NewJWKSVerifier(cache *jwk.Cache, jwksURL, adminGroup string) *JWKSVerifier {
	return &JWKSVerifier{cache: cache, jwksURL: jwksURL, adminGroup: adminGroup}
}

func (v *JWKSVerifier) Verify(ctx context.Context, accessToken string) (*types.Identity, error) {
	set, err := v.cache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(accessToken),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	return identityFromToken(token, v.adminGroup)
}

func identityFromToken(token jwt.Token, adminGroup string) (*types.Identity, error) {
	userID, ok := token.Subject()
	if !ok || userID == "" {
		return nil, ErrTokenMissingSubject
	}

	identity := &types.Identity{UserID: userID, Role: types.RoleCitizen}

	// email and name are optional on access tokens
	_ = token.Get("email", &identity.Email)
	_ = token.Get("name", &identity.Name)

	var raw any
	if err := token.Get("cognito:groups", &raw); err == nil && slices.Contains(claimStrings(raw), adminGroup) {
		identity.Role = types.RoleAdmin
	}

	return identity, nil
}

// claimStrings flattens a JSON array claim into its string members.
func claimStrings(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}
