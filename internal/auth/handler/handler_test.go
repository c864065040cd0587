package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/druid-matt/ossinsight/internal/auth/account"
	"github.com/druid-matt/ossinsight/internal/auth/provider"
	"github.com/druid-matt/ossinsight/internal/auth/provider/github"
	"github.com/druid-matt/ossinsight/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore implements the account.Store contract in memory: upsert
// keyed on (provider, provider_account_id), user and linkage written
// together, profile fields never overwritten by later logins.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	users    map[string]account.UserProfile
	accounts map[string]memAccount // key: provider + "/" + providerAccountID
}

type memAccount struct {
	userID string
	login  string
	token  string
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]account.UserProfile),
		accounts: make(map[string]memAccount),
	}
}

func (s *memStore) FindOrCreateUserByAccount(
	ctx context.Context,
	user account.UserDraft,
	acct account.AccountDraft,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := acct.Provider + "/" + acct.ProviderAccountID
	if existing, ok := s.accounts[key]; ok {
		existing.login = acct.ProviderAccountLogin
		existing.token = acct.AccessToken
		s.accounts[key] = existing

		p := s.users[existing.userID]
		p.GithubLogin = acct.ProviderAccountLogin
		s.users[existing.userID] = p
		return existing.userID, nil
	}

	s.nextID++
	id := "user-" + strconv.Itoa(s.nextID)
	s.users[id] = account.UserProfile{
		ID:              id,
		Name:            user.Name,
		EmailAddress:    user.EmailAddress,
		EmailGetUpdates: false,
		AvatarURL:       user.AvatarURL,
		Role:            account.RoleUser,
		CreatedAt:       time.Now(),
		Enabled:         true,
		GithubLogin:     acct.ProviderAccountLogin,
	}
	s.accounts[key] = memAccount{
		userID: id,
		login:  acct.ProviderAccountLogin,
		token:  acct.AccessToken,
	}
	return id, nil
}

func (s *memStore) GetUserByID(ctx context.Context, id string) (account.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.users[id]
	if !ok {
		return account.UserProfile{}, account.ErrNotFound
	}
	return p, nil
}

// fakeGitHub serves the token and user endpoints the provider calls.
type fakeGitHub struct {
	*httptest.Server
	mu    sync.Mutex
	login string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()

	f := &fakeGitHub{login: "alice"}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "abc123" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok1",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		login := f.login
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":         555,
			"login":      login,
			"name":       "Alice",
			"email":      "a@x.com",
			"avatar_url": "http://x/a.png",
		})
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGitHub) setLogin(login string) {
	f.mu.Lock()
	f.login = login
	f.mu.Unlock()
}

type testEnv struct {
	router *gin.Engine
	store  *memStore
	github *fakeGitHub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := newFakeGitHub(t)

	gh, err := github.New("client-id", "client-secret",
		"http://localhost/login/github/callback",
		github.WithEndpoints(fake.URL+"/authorize", fake.URL+"/token"),
		github.WithAPIBaseURL(fake.URL),
	)
	require.NoError(t, err)

	store := newMemStore()
	h := NewHandler(
		provider.NewRegistry(gh),
		store,
		session.NewIssuer("test_secret"),
		session.CookieOptions{Name: "o-token", SameSite: http.SameSiteLaxMode},
		NewCookieStates(),
		nil,
	)

	router := gin.New()
	h.RegisterRoutes(router)

	return &testEnv{router: router, store: store, github: fake}
}

type callbackBody struct {
	Success bool                `json:"success"`
	Profile account.UserProfile `json:"profile"`
}

// login performs the redirect leg and returns the issued state plus the
// state cookie to replay on the callback.
func (e *testEnv) login(t *testing.T) (string, []*http.Cookie) {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login/github", nil)
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	return state, rec.Result().Cookies()
}

func (e *testEnv) callback(t *testing.T, code, state string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/login/github/callback?code="+url.QueryEscape(code)+"&state="+url.QueryEscape(state), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestCallback_FirstLoginCreatesUser(t *testing.T) {
	env := newTestEnv(t)

	state, cookies := env.login(t)
	rec := env.callback(t, "abc123", state, cookies)

	require.Equal(t, http.StatusOK, rec.Code)

	var body callbackBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "alice", body.Profile.GithubLogin)
	assert.Equal(t, "Alice", body.Profile.Name)
	assert.Equal(t, account.RoleUser, body.Profile.Role)
	assert.True(t, body.Profile.Enabled)
	assert.False(t, body.Profile.EmailGetUpdates)

	// exactly one user and one linkage
	assert.Len(t, env.store.users, 1)
	assert.Len(t, env.store.accounts, 1)
	assert.Equal(t, "tok1", env.store.accounts["github/555"].token)

	// session cookie: HttpOnly, expiry in lockstep with the token
	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "o-token" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)
	assert.Equal(t, "/", sessionCookie.Path)
	assert.WithinDuration(t, time.Now().Add(session.TTL), sessionCookie.Expires, time.Minute)

	claims, err := session.NewIssuer("test_secret").Verify(sessionCookie.Value)
	require.NoError(t, err)
	assert.Equal(t, body.Profile.ID, claims.UserProfile.ID)
	assert.Equal(t, "tok1", claims.AccessToken)
}

func TestCallback_SecondLoginReusesUser(t *testing.T) {
	env := newTestEnv(t)

	state, cookies := env.login(t)
	rec := env.callback(t, "abc123", state, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var first callbackBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	// same provider account logs in again under a renamed handle
	env.github.setLogin("alice2")

	state, cookies = env.login(t)
	rec = env.callback(t, "abc123", state, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var second callbackBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	assert.Equal(t, first.Profile.ID, second.Profile.ID)
	assert.Len(t, env.store.users, 1)

	// linkage metadata refreshed, user profile untouched
	assert.Equal(t, "alice2", env.store.accounts["github/555"].login)
	assert.Equal(t, "Alice", second.Profile.Name)
}

func TestCallback_MissingCode(t *testing.T) {
	env := newTestEnv(t)

	state, cookies := env.login(t)
	rec := env.callback(t, "", state, cookies)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.store.users)
}

func TestCallback_InvalidState(t *testing.T) {
	env := newTestEnv(t)

	_, cookies := env.login(t)
	rec := env.callback(t, "abc123", "forged-state", cookies)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.store.users)
}

func TestCallback_BadCodeIsTerminal(t *testing.T) {
	env := newTestEnv(t)

	state, cookies := env.login(t)
	rec := env.callback(t, "expired-code", state, cookies)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.store.users)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "authentication failed", body["error"])
}

func TestCallback_ProviderDenied(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/login/github/callback?error=access_denied&error_description=user+cancelled", nil)
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_UnknownProvider(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login/gitlab", nil)
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
