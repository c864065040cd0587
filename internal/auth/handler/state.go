package handler

import (
	"net/http"
	"time"

	"github.com/druid-matt/ossinsight/internal/redis"
	"github.com/druid-matt/ossinsight/internal/utils"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

const (
	stateCookieName = "__oauth_state"
	stateTTL        = 5 * time.Minute
)

// StateStore issues and validates the CSRF state that round-trips
// through the provider redirect.
type StateStore interface {
	Issue(c *gin.Context) (string, error)
	Validate(c *gin.Context) bool
}

// CookieStates keeps the state in a short-lived HttpOnly cookie and
// compares it against the callback query parameter.
type CookieStates struct{}

func NewCookieStates() *CookieStates {
	return &CookieStates{}
}

func (s *CookieStates) Issue(c *gin.Context) (string, error) {
	state := utils.RandomString(32)
	setStateCookie(c, state)
	return state, nil
}

func (s *CookieStates) Validate(c *gin.Context) bool {
	return cookieStateMatches(c)
}

// RedisStates additionally stores each state server-side with a short
// TTL and consumes it exactly once, so a replayed callback fails even
// when the cookie still matches.
type RedisStates struct {
	client *redis.Client
	prefix string
}

func NewRedisStates(client *redis.Client) *RedisStates {
	return &RedisStates{
		client: client,
		prefix: "oauth_state:",
	}
}

func (s *RedisStates) Issue(c *gin.Context) (string, error) {
	state := utils.RandomString(32)

	err := s.client.Set(c.Request.Context(), s.prefix+state, "1", stateTTL).Err()
	if err != nil {
		return "", err
	}

	setStateCookie(c, state)
	return state, nil
}

func (s *RedisStates) Validate(c *gin.Context) bool {
	if !cookieStateMatches(c) {
		return false
	}

	state := c.Query("state")
	_, err := s.client.GetDel(c.Request.Context(), s.prefix+state).Result()
	if err == goredis.Nil {
		return false
	}
	return err == nil
}

func setStateCookie(c *gin.Context, state string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(stateTTL.Seconds()),
	})
}

func cookieStateMatches(c *gin.Context) bool {
	stateQuery := c.Query("state")
	if stateQuery == "" {
		return false
	}

	cookie, err := c.Request.Cookie(stateCookieName)
	if err != nil {
		return false
	}

	return cookie.Value == stateQuery
}
