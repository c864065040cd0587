package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/druid-matt/ossinsight/internal/auth"

	"golang.org/x/oauth2"
	githubep "golang.org/x/oauth2/github"
)

const (
	providerName      = "github"
	defaultAPIBaseURL = "https://api.github.com"

	// Bound on each outbound provider call so a slow provider cannot
	// suspend a login indefinitely.
	requestTimeout = 10 * time.Second
)

// Provider implements GitHub OAuth authentication. GitHub does not
// speak OIDC, so the identity is fetched from its REST user endpoint
// instead of an id_token.
type Provider struct {
	oauthConfig *oauth2.Config
	apiBaseURL  string
	httpClient  *http.Client
}

type Option func(*Provider)

// WithEndpoints overrides the authorize/token endpoints. Test hook.
func WithEndpoints(authURL, tokenURL string) Option {
	return func(p *Provider) {
		p.oauthConfig.Endpoint = oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		}
	}
}

// WithAPIBaseURL overrides the REST API base URL. Test hook.
func WithAPIBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.apiBaseURL = baseURL
	}
}

func New(
	clientID string,
	clientSecret string,
	redirectURL string,
	opts ...Option,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     githubep.Endpoint,
		Scopes: []string{
			"read:user",
			"user:email",
		},
	}

	p := &Provider{
		oauthConfig: oauthCfg,
		apiBaseURL:  defaultAPIBaseURL,
		httpClient:  &http.Client{Timeout: requestTimeout},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the GitHub authorization URL.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// ExchangeCode performs the authorization-code grant against GitHub's
// token endpoint and returns the provider access token.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("github token exchange failed: %w", err)
	}

	if token.AccessToken == "" {
		return "", errors.New("github returned empty access token")
	}

	return token.AccessToken, nil
}

// FetchIdentity calls GitHub's authenticated-user endpoint once and
// maps the response into a normalized identity. The numeric GitHub id
// is stringified to match the linked-account join key.
func (p *Provider) FetchIdentity(ctx context.Context, accessToken string) (*auth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("github user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github user fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user fetch returned status %d", resp.StatusCode)
	}

	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("github user response parse failed: %w", err)
	}

	if payload.ID == 0 || payload.Login == "" {
		return nil, errors.New("github user response missing required fields")
	}

	name := payload.Name
	if name == "" {
		name = payload.Login
	}

	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: strconv.FormatInt(payload.ID, 10),
		Login:          payload.Login,
		Name:           name,
		Email:          payload.Email,
		AvatarURL:      payload.AvatarURL,
	}, nil
}
