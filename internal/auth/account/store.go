package account

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("account: user not found")

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserDraft carries the profile fields used when a first login creates
// a user. On subsequent logins the draft is ignored; only the linked
// account metadata refreshes.
type UserDraft struct {
	Name         string
	EmailAddress string
	AvatarURL    string
}

// AccountDraft carries the provider-side linkage for one login.
// (Provider, ProviderAccountID) is the join key; access tokens rotate
// on every login.
type AccountDraft struct {
	Provider             string
	ProviderAccountID    string
	ProviderAccountLogin string
	AccessToken          string
}

// UserProfile is the canonical user shape embedded into session
// credentials and returned from login responses.
type UserProfile struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	EmailAddress    string    `json:"emailAddress"`
	EmailGetUpdates bool      `json:"emailGetUpdates"`
	AvatarURL       string    `json:"avatarUrl"`
	Role            Role      `json:"role"`
	CreatedAt       time.Time `json:"createdAt"`
	Enabled         bool      `json:"enabled"`
	GithubLogin     string    `json:"githubLogin"`
}

// Store is the persistence contract the login flow requires.
//
// FindOrCreateUserByAccount is an upsert keyed on the provider account,
// never on email: two provider accounts sharing an email are distinct
// users. Implementations must create the user and linked account
// atomically so a failed account insert leaves no dangling user.
type Store interface {
	FindOrCreateUserByAccount(ctx context.Context, user UserDraft, acct AccountDraft) (string, error)
	GetUserByID(ctx context.Context, id string) (UserProfile, error)
}
