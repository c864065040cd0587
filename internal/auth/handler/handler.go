package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/druid-matt/ossinsight/internal/auth"
	"github.com/druid-matt/ossinsight/internal/auth/account"
	"github.com/druid-matt/ossinsight/internal/auth/credentials"
	"github.com/druid-matt/ossinsight/internal/auth/provider"
	"github.com/druid-matt/ossinsight/internal/logger"
	"github.com/druid-matt/ossinsight/internal/serr"
	"github.com/druid-matt/ossinsight/internal/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	providers  *provider.Registry
	store      account.Store
	issuer     *session.Issuer
	cookieOpts session.CookieOptions
	states     StateStore
	creds      *credentials.Service
}

func NewHandler(
	registry *provider.Registry,
	store account.Store,
	issuer *session.Issuer,
	cookieOpts session.CookieOptions,
	states StateStore,
	creds *credentials.Service,
) *Handler {
	return &Handler{
		providers:  registry,
		store:      store,
		issuer:     issuer,
		cookieOpts: cookieOpts,
		states:     states,
		creds:      creds,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/login/:provider", h.login)
	r.GET("/login/:provider/callback", h.callback)

	if h.creds != nil {
		r.POST("/auth/register", h.register)
		r.POST("/auth/login", h.loginPassword)
	}
}

func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	state, err := h.states.Issue(c)
	if err != nil {
		writeErr(c, serr.New(err, http.StatusInternalServerError, "failed to start login"))
		return
	}

	c.Redirect(http.StatusFound, p.AuthCodeURL(state))
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	// Provider-side denial (user cancelled, consent revoked) arrives as
	// an error parameter instead of a code.
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		writeErr(c, serr.UpstreamAuth(errors.New("provider rejected authorization")))
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "missing authorization code",
		})
		return
	}

	if !h.states.Validate(c) {
		writeErr(c, serr.UpstreamAuth(errors.New("invalid oauth state")))
		return
	}

	ctx := c.Request.Context()

	accessToken, err := p.ExchangeCode(ctx, code)
	if err != nil {
		writeErr(c, serr.UpstreamAuth(err))
		return
	}

	identity, err := p.FetchIdentity(ctx, accessToken)
	if err != nil {
		writeErr(c, serr.UpstreamAuth(err))
		return
	}

	userID, err := h.store.FindOrCreateUserByAccount(ctx,
		account.UserDraft{
			Name:         identity.Name,
			EmailAddress: identity.Email,
			AvatarURL:    identity.AvatarURL,
		},
		account.AccountDraft{
			Provider:             identity.Provider,
			ProviderAccountID:    identity.ProviderUserID,
			ProviderAccountLogin: identity.Login,
			AccessToken:          accessToken,
		},
	)
	if err != nil {
		writeErr(c, serr.Linkage(err))
		return
	}

	h.issueSession(c, userID, accessToken, identity)
}

// issueSession loads the canonical profile, mints the signed credential
// and sets it as the session cookie. Exactly one mint and one cookie
// write per successful login.
func (h *Handler) issueSession(
	c *gin.Context,
	userID string,
	accessToken string,
	identity *auth.Identity,
) {
	ctx := c.Request.Context()

	profile, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		writeErr(c, serr.Linkage(err))
		return
	}

	token, expiresAt, err := h.issuer.Issue(profile, accessToken, time.Now())
	if err != nil {
		writeErr(c, serr.New(err, http.StatusInternalServerError, "failed to create session"))
		return
	}

	session.SetCookie(c.Writer, token, expiresAt, h.cookieOpts)

	fields := map[string]any{
		"user_id": userID,
		"ip":      c.ClientIP(),
	}
	if identity != nil {
		fields["provider"] = identity.Provider
		fields["provider_login"] = identity.Login
	}
	logger.Info("login succeeded", fields)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"profile": profile,
	})
}

func writeErr(c *gin.Context, err error) {
	var se *serr.ServiceError
	if !errors.As(err, &se) {
		se = serr.New(err, http.StatusInternalServerError, "internal error")
	}

	logger.Error("request failed", map[string]any{
		"error":  se.Error(),
		"status": se.StatusCode,
		"path":   c.Request.URL.Path,
	})

	c.JSON(se.StatusCode, gin.H{"error": se.Msg})
}
