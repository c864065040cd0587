package auth

// Identity represents a normalized external identity returned by an
// OAuth provider. It contains facts only, no decisions, and is sourced
// fresh on every login rather than persisted.
type Identity struct {
	Provider       string // e.g. "github"
	ProviderUserID string // provider-scoped unique user identifier, stringified
	Login          string // provider login handle
	Name           string // display name; falls back to the login handle
	Email          string // may be empty; informational, never an identity key
	AvatarURL      string
}
