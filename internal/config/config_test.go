package config

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "o-token", cfg.JWTCookieName)
	assert.False(t, cfg.JWTCookieSecure)
	assert.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite())
}

func TestOAuthEnabled_RequiresBothCredentials(t *testing.T) {
	cfg := Config{}
	assert.False(t, cfg.OAuthEnabled())

	cfg.OAuthClientID = "id"
	assert.False(t, cfg.OAuthEnabled())

	cfg.OAuthClientSecret = "secret"
	assert.True(t, cfg.OAuthEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("OAUTH_CLIENT_ID", "id")
	t.Setenv("OAUTH_CLIENT_SECRET", "secret")
	t.Setenv("JWT_COOKIE_NAME", "custom-token")
	t.Setenv("JWT_COOKIE_SAME_SITE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.OAuthEnabled())
	assert.Equal(t, "custom-token", cfg.JWTCookieName)
	assert.Equal(t, http.SameSiteNoneMode, cfg.CookieSameSite())
}

func TestOAuthRedirectURL(t *testing.T) {
	cfg := Config{APIBaseURL: "https://api.example.com"}
	assert.Equal(t,
		"https://api.example.com/login/github/callback",
		cfg.OAuthRedirectURL(),
	)

	cfg.APIBaseURL = "https://api.example.com/"
	assert.Equal(t,
		"https://api.example.com/login/github/callback",
		cfg.OAuthRedirectURL(),
	)
}
