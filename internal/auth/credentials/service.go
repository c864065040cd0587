package credentials

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/druid-matt/ossinsight/internal/db"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
)

type Service struct {
	db *db.DB
}

func NewService(db *db.DB) *Service {
	return &Service{db: db}
}

// Register creates password credentials for the given email, creating
// the user first if needed. Password login and OAuth login share the
// same users table, keyed differently.
func (s *Service) Register(
	ctx context.Context,
	email string,
	password string,
) (string, error) {

	var userID uuid.UUID

	// 1. Find or create user by email
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM users
		WHERE LOWER(email) = LOWER($1)
		  AND email <> ''
	`, email).Scan(&userID)

	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO users (name, email)
			VALUES ($1, $2)
			RETURNING id
		`, displayName(email), email).Scan(&userID)
	}

	if err != nil {
		return "", err
	}

	// 2. Check if credentials already exist
	var exists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM credentials WHERE user_id = $1
		)
	`, userID).Scan(&exists)

	if err != nil {
		return "", err
	}

	if exists {
		return "", ErrAlreadyRegistered
	}

	// 3. Hash password
	hash, version, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	// 4. Insert credentials
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
	`, userID, hash, version)

	if err != nil {
		return "", err
	}

	return userID.String(), nil
}

func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (string, error) {

	var (
		userID       uuid.UUID
		passwordHash string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, c.password_hash
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.email) = LOWER($1)
	`, email).Scan(&userID, &passwordHash)

	if err != nil {
		// hide whether user exists or not
		return "", ErrInvalidCredentials
	}

	if err := VerifyPassword(passwordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	return userID.String(), nil
}

func displayName(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
