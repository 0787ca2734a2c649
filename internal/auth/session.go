package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionIssuer     = "gatehouse"
	DefaultSessionTTL = 12 * time.Hour
)

var ErrInvalidSession = errors.New("invalid session")

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Sessions issues and validates HS256 operator session tokens.
type Sessions struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type SessionOption func(*Sessions)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Sessions) { s.now = now }
}

// NewSessions signs with key. An empty key gets a random one, which means
// sessions do not survive a restart.
func NewSessions(key string, ttl time.Duration, opts ...SessionOption) (*Sessions, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &Sessions{key: []byte(key), ttl: ttl, now: time.Now}
	if len(s.key) == 0 {
		s.key = make([]byte, 32)
		if _, err := rand.Read(s.key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

func (s *Sessions) Issue(username string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *Sessions) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", ErrInvalidSession)
		}
		return nil, ErrInvalidSession
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Username == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
