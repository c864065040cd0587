package provider

import (
	"context"

	"github.com/druid-matt/ossinsight/internal/auth"
)

// OAuthProvider defines the contract every external auth provider must
// implement. Implementations return provider credentials and identity
// facts only and must not perform user creation, linking, or session
// management.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "github").
	Name() string

	// AuthCodeURL returns the OAuth authorization URL.
	// The CSRF state parameter is provided by the caller.
	AuthCodeURL(state string) string

	// ExchangeCode exchanges the authorization code for a provider
	// access token. Codes are single-use; callers must not retry.
	ExchangeCode(ctx context.Context, code string) (string, error)

	// FetchIdentity resolves the access token to the authenticated
	// external identity via the provider's user endpoint.
	FetchIdentity(ctx context.Context, accessToken string) (*auth.Identity, error)
}
