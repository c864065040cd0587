package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/druid-matt/ossinsight/internal/db"

	"github.com/google/uuid"
)

// DBStore links provider accounts to users in Postgres.
type DBStore struct {
	db *db.DB
}

func NewDBStore(db *db.DB) *DBStore {
	return &DBStore{db: db}
}

// FindOrCreateUserByAccount resolves a provider account to a local user
// id. An existing linkage only refreshes its login handle and access
// token; user profile fields are never overwritten by later logins.
// First-time linkage creates the user and account rows in a single
// transaction, so retries after a mid-flow failure stay idempotent.
func (s *DBStore) FindOrCreateUserByAccount(
	ctx context.Context,
	user UserDraft,
	acct AccountDraft,
) (string, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("account: begin tx: %w", err)
	}
	defer tx.Rollback()

	var userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT user_id
		FROM linked_accounts
		WHERE provider = $1
		  AND provider_account_id = $2
		FOR UPDATE
	`,
		acct.Provider,
		acct.ProviderAccountID,
	).Scan(&userID)

	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE linked_accounts
			SET provider_account_login = $3,
			    access_token = $4,
			    updated_at = NOW()
			WHERE provider = $1
			  AND provider_account_id = $2
		`,
			acct.Provider,
			acct.ProviderAccountID,
			acct.ProviderAccountLogin,
			acct.AccessToken,
		)
		if err != nil {
			return "", fmt.Errorf("account: refresh linkage: %w", err)
		}

	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (name, email, avatar_url)
			VALUES ($1, $2, $3)
			RETURNING id
		`,
			user.Name,
			user.EmailAddress,
			user.AvatarURL,
		).Scan(&userID)
		if err != nil {
			return "", fmt.Errorf("account: create user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO linked_accounts
				(user_id, provider, provider_account_id, provider_account_login, access_token)
			VALUES ($1, $2, $3, $4, $5)
		`,
			userID,
			acct.Provider,
			acct.ProviderAccountID,
			acct.ProviderAccountLogin,
			acct.AccessToken,
		)
		if err != nil {
			return "", fmt.Errorf("account: create linkage: %w", err)
		}

	default:
		return "", fmt.Errorf("account: lookup linkage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("account: commit: %w", err)
	}

	return userID.String(), nil
}

// GetUserByID returns the canonical profile, including the linked
// GitHub login handle when one exists.
func (s *DBStore) GetUserByID(ctx context.Context, id string) (UserProfile, error) {
	var p UserProfile

	err := s.db.QueryRowContext(ctx, `
		SELECT u.id,
		       u.name,
		       u.email,
		       u.email_get_updates,
		       u.avatar_url,
		       u.role,
		       u.created_at,
		       u.enabled,
		       COALESCE(a.provider_account_login, '')
		FROM users u
		LEFT JOIN linked_accounts a
		       ON a.user_id = u.id
		      AND a.provider = 'github'
		WHERE u.id = $1
	`, id).Scan(
		&p.ID,
		&p.Name,
		&p.EmailAddress,
		&p.EmailGetUpdates,
		&p.AvatarURL,
		&p.Role,
		&p.CreatedAt,
		&p.Enabled,
		&p.GithubLogin,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return UserProfile{}, ErrNotFound
	}
	if err != nil {
		return UserProfile{}, fmt.Errorf("account: get user: %w", err)
	}

	return p, nil
}
