// Package auth issues and validates the HS256 bearer tokens of the catalog
// server and decides whether validated claims permit an operation.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload of a catalog token. The username travels in the
// registered "sub" claim.
type Claims struct {
	Role   models.Role `json:"role"`
	UserID int64       `json:"uid"`
	jwt.RegisteredClaims
}

// Username returns the token subject.
func (c *Claims) Username() string {
	return c.Subject
}

// Expiration returns the exp claim, or the zero time when absent.
func (c *Claims) Expiration() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenManager signs tokens with the current key and verifies them against
// the current and any previous keys. It holds no mutable state and is safe
// for concurrent use.
type TokenManager struct {
	key      []byte
	previous [][]byte
	validity time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

type Option func(*TokenManager)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) { m.now = now }
}

// WithPreviousKeys adds keys that are still accepted for verification.
func WithPreviousKeys(keys ...[]byte) Option {
	return func(m *TokenManager) { m.previous = append(m.previous, keys...) }
}

// WithIssuer stamps iss on issued tokens and requires it on validation.
func WithIssuer(iss string) Option {
	return func(m *TokenManager) { m.issuer = iss }
}

// WithAudience stamps aud on issued tokens and requires it on validation.
func WithAudience(aud string) Option {
	return func(m *TokenManager) { m.audience = aud }
}

var (
	ErrEmptyKey        = errors.New("signing key is empty")
	ErrInvalidValidity = errors.New("token validity must be positive")
)

func NewTokenManager(key []byte, validity time.Duration, opts ...Option) (*TokenManager, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if validity <= 0 {
		return nil, ErrInvalidValidity
	}

	m := &TokenManager{key: key, validity: validity, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Validity is the lifetime given to every issued token.
func (m *TokenManager) Validity() time.Duration {
	return m.validity
}

// Issue signs a token for the given identity, valid from now until
// now + Validity().
func (m *TokenManager) Issue(userID int64, username string, role models.Role) (string, *Claims, error) {
	now := m.now()

	claims := &Claims{
		Role:   role,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.validity)),
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (m *TokenManager) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	return opts
}

// Validate checks signature, expiry and (when configured) issuer and
// audience. Failures are always *ValidationError.
func (m *TokenManager) Validate(raw string) (*Claims, error) {
	if raw == "" {
		return nil, reject(ReasonMalformed, nil)
	}

	keys := append([][]byte{m.key}, m.previous...)
	opts := m.parserOptions()

	var lastErr error
	for _, key := range keys {
		claims := &Claims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return key, nil
		}, opts...)

		if err == nil {
			if !claims.Role.Valid() || claims.Subject == "" {
				return nil, reject(ReasonMalformed, nil)
			}
			return claims, nil
		}
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, classify(err)
		}
		lastErr = err
	}
	return nil, classify(lastErr)
}
