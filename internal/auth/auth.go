// Package auth implements the toy login layer: a built-in demo account, an
// optional hosted identity provider, and signed session tokens.
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrMissingCredentials = errors.New("please enter username/email and password")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	ProviderDemo     = "demo"
	ProviderIdentity = "identity"
)

// Session is the signed-in user. It is passed explicitly to whatever needs it.
type Session struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Provider    string `json:"provider"`
}

// Authenticator verifies an identifier/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (*Session, error)
}

// DemoSession is the fixed account behind the demo credentials.
var DemoSession = Session{
	UID:         "demo-uid",
	Email:       "user@demo.local",
	DisplayName: "Demo User",
	Provider:    ProviderDemo,
}

// DemoAuthenticator accepts "user" (trimmed, any case) with "password".
type DemoAuthenticator struct{}

func (DemoAuthenticator) Authenticate(_ context.Context, identifier, password string) (*Session, error) {
	if strings.ToLower(strings.TrimSpace(identifier)) == "user" && password == "password" {
		s := DemoSession
		return &s, nil
	}
	return nil, ErrInvalidCredentials
}

// Chain tries each authenticator in order and returns the first session.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, identifier, password string) (*Session, error) {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	err := ErrInvalidCredentials
	for _, a := range c {
		if a == nil {
			continue
		}
		s, aerr := a.Authenticate(ctx, identifier, password)
		if aerr == nil {
			return s, nil
		}
		err = aerr
	}
	return nil, err
}

type ctxKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
