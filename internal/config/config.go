package config

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`
	APIBaseURL        string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`

	JWTSecret         string `env:"JWT_SECRET"`
	JWTCookieName     string `env:"JWT_COOKIE_NAME" envDefault:"o-token"`
	JWTCookieDomain   string `env:"JWT_COOKIE_DOMAIN"`
	JWTCookieSecure   bool   `env:"JWT_COOKIE_SECURE" envDefault:"false"`
	JWTCookieSameSite bool   `env:"JWT_COOKIE_SAME_SITE" envDefault:"true"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}

// OAuthEnabled reports whether the GitHub login feature is on.
// Both client credentials must be present; absence of either disables
// the whole auth surface at startup.
func (c Config) OAuthEnabled() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != ""
}

// OAuthRedirectURL builds the callback URL registered with the provider.
// It must match the registered redirect exactly or the code exchange fails.
func (c Config) OAuthRedirectURL() string {
	return strings.TrimRight(c.APIBaseURL, "/") + "/login/github/callback"
}

func (c Config) CookieSameSite() http.SameSite {
	if c.JWTCookieSameSite {
		return http.SameSiteLaxMode
	}
	return http.SameSiteNoneMode
}
