package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/druid-matt/ossinsight/internal/auth/account"
	"github.com/druid-matt/ossinsight/internal/auth/credentials"
	"github.com/druid-matt/ossinsight/internal/auth/handler"
	"github.com/druid-matt/ossinsight/internal/auth/provider"
	"github.com/druid-matt/ossinsight/internal/auth/provider/github"
	"github.com/druid-matt/ossinsight/internal/config"
	"github.com/druid-matt/ossinsight/internal/logger"
	"github.com/druid-matt/ossinsight/internal/middleware"
	"github.com/druid-matt/ossinsight/internal/session"

	"github.com/gin-gonic/gin"
)

// deps groups everything mountRoutes needs, so route registration can
// be exercised without real infrastructure.
type deps struct {
	store      account.Store
	issuer     *session.Issuer
	cookieOpts session.CookieOptions
	registry   *provider.Registry
	states     handler.StateStore
	creds      *credentials.Service
}

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	d := deps{
		store:  account.NewDBStore(infra.DB),
		issuer: session.NewIssuer(cfg.JWTSecret),
		cookieOpts: session.CookieOptions{
			Name:     cfg.JWTCookieName,
			Domain:   cfg.JWTCookieDomain,
			Secure:   cfg.JWTCookieSecure,
			SameSite: cfg.CookieSameSite(),
		},
		creds: credentials.NewService(infra.DB),
	}

	if cfg.OAuthEnabled() {
		if cfg.JWTSecret == "" {
			return nil, nil, errors.New("JWT_SECRET is required when oauth login is enabled")
		}

		gh, err := github.New(
			cfg.OAuthClientID,
			cfg.OAuthClientSecret,
			cfg.OAuthRedirectURL(),
		)
		if err != nil {
			return nil, nil, err
		}
		d.registry = provider.NewRegistry(gh)

		if infra.Redis != nil {
			d.states = handler.NewRedisStates(infra.Redis)
		} else {
			d.states = handler.NewCookieStates()
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())

	mountRoutes(router, cfg, d)

	return router, func() error {
		return infra.DB.Close()
	}, nil
}

// mountRoutes registers the HTTP surface. The whole auth surface,
// including the protected group, exists only when the OAuth feature is
// enabled; without client credentials none of it is reachable.
func mountRoutes(router *gin.Engine, cfg config.Config, d deps) {

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if !cfg.OAuthEnabled() {
		logger.Warn("oauth login disabled: client credentials not configured", nil)
		return
	}

	authHandler := handler.NewHandler(
		d.registry,
		d.store,
		d.issuer,
		d.cookieOpts,
		d.states,
		d.creds,
	)
	authHandler.RegisterRoutes(router)

	authMiddleware := middleware.NewAuthMiddleware(d.issuer, d.cookieOpts.Name)

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	api.GET("/me", func(c *gin.Context) {
		profile, ok := middleware.ProfileFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, profile)
	})
}
