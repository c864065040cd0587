package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/druid-matt/ossinsight/internal/auth/account"

	"github.com/golang-jwt/jwt/v5"
)

// TTL is the fixed session lifetime. The embedded profile is a mint-time
// snapshot and is not refreshed until the next login, so the staleness
// window equals this lifetime.
const TTL = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("session: invalid token")

// Claims is the self-contained session payload: the full user profile,
// so protected handlers never need a database round trip, plus the raw
// provider access token.
type Claims struct {
	jwt.RegisteredClaims
	account.UserProfile
	AccessToken string `json:"accessToken"`
}

// Issuer mints and verifies HMAC-signed session credentials. Validity
// is purely cryptographic and expiry-based; nothing is stored server
// side and there is no revocation list. Rotating the secret invalidates
// every outstanding session.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    TTL,
	}
}

// Issue signs a credential for the profile, expiring ttl after now.
// The returned expiry is also used for the cookie so both stay in
// lockstep; the embedded expiry is the authoritative one.
func (i *Issuer) Issue(
	profile account.UserProfile,
	accessToken string,
	now time.Time,
) (string, time.Time, error) {

	expiresAt := now.Add(i.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserProfile: profile,
		AccessToken: accessToken,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign token: %w", err)
	}

	return token, expiresAt, nil
}

// Verify checks the signature and expiry and returns the decoded
// claims. Malformed, forged and expired tokens all fail the same way.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}
