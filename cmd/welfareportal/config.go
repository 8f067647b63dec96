package main

import (
	"context"
	"fmt"
	"strings"

	"welfareportal/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kelseyhightower/envconfig"
)

func loadConfig() (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 60
	}

	if c.DraftIdleTTLSec <= 0 {
		c.DraftIdleTTLSec = 3600
	}

	if c.CognitoIssuerURL == "" {
		c.CognitoIssuerURL = cognitoIssuerURL(c.CognitoUserPoolID)
	}

	return c, nil
}

// cognitoIssuerURL builds the token issuer for a pool id such as
// ap-south-1_AbCdEf, whose prefix is the pool's region.
func cognitoIssuerURL(poolID string) string {
	region, _, ok := strings.Cut(poolID, "_")
	if !ok || region == "" {
		return ""
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, poolID)
}

// validateServeConfig checks the settings only the HTTP server needs.
func validateServeConfig(c *types.Config) error {
	switch {
	case c.CognitoClientID == "":
		return fmt.Errorf("set COGNITO_CLIENT_ID")
	case c.CognitoIssuerURL == "":
		return fmt.Errorf("set COGNITO_ISSUER_URL or COGNITO_USER_POOL_ID")
	case c.CookieHashKey == "" || c.CookieBlockKey == "":
		return fmt.Errorf("set COOKIE_HASH_KEY and COOKIE_BLOCK_KEY")
	}
	return nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}
