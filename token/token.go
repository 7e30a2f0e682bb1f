// Package token encodes and decodes the signed, expiring claim sets used
// as access and refresh credentials.
//
// Access and refresh tokens are signed with different secrets and carry an
// explicit kind tag, so a refresh token is never accepted where an access
// token is expected and vice versa.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

var (
	ErrMalformed        = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
	ErrWrongKind        = errors.New("token kind mismatch")
	ErrConfig           = errors.New("invalid token config")
)

// Claims is the signed payload carried by every token.
type Claims struct {
	UserID string `json:"uid"`
	Kind   Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is the session credential handed to clients.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Option func(*Codec)

// WithClock replaces the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec signs and verifies tokens. It holds no mutable state and is safe for
// concurrent use.
type Codec struct {
	secrets map[Kind][]byte
	ttls    map[Kind]time.Duration
	now     func() time.Time
}

func NewCodec(cfg Config, opts ...Option) (*Codec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("%w: secrets must not be empty", ErrConfig)
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrConfig)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrConfig)
	}

	c := &Codec{
		secrets: map[Kind][]byte{
			Access:  []byte(cfg.AccessSecret),
			Refresh: []byte(cfg.RefreshSecret),
		},
		ttls: map[Kind]time.Duration{
			Access:  cfg.AccessTTL,
			Refresh: cfg.RefreshTTL,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the validity window for kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	return c.ttls[kind]
}

// Encode signs a new token of the given kind for userID.
func (c *Codec) Encode(kind Kind, userID string) (string, Claims, error) {
	secret, ok := c.secrets[kind]
	if !ok {
		return "", Claims{}, fmt.Errorf("%w: unknown kind %q", ErrConfig, kind)
	}

	now := c.now()
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttls[kind])),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, claims, nil
}

// Decode verifies tokenStr with the secret for kind and returns its claims.
func (c *Codec) Decode(kind Kind, tokenStr string) (*Claims, error) {
	secret, ok := c.secrets[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrConfig, kind)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	if claims.UserID == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
