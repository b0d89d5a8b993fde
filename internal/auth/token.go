package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
	Provider    string `json:"provider"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for s that expires after the manager's TTL.
func (m *Manager) Issue(s Session) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:       s.Email,
		DisplayName: s.DisplayName,
		Provider:    s.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its session.
func (m *Manager) Parse(token string) (*Session, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if c.Subject == "" {
		return nil, errors.New("invalid session token: missing subject")
	}

	return &Session{
		UID:         c.Subject,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		Provider:    c.Provider,
	}, nil
}
