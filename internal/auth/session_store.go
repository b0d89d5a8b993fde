package auth

import (
	"encoding/json"
	"fmt"

	"pantry-planner/internal/storage"
)

const (
	// DemoSessionKey holds a demo session.
	DemoSessionKey = "authUser_demo"
	// SessionKey holds a session from any other provider.
	SessionKey = "authUser"
)

// SessionStore keeps the signed-in session of a local client (the CLI).
type SessionStore struct {
	store storage.Surface
}

func NewSessionStore(store storage.Surface) *SessionStore {
	return &SessionStore{store: store}
}

// Load restores the demo session first, then any other saved session.
func (s *SessionStore) Load() (*Session, bool) {
	if sess, ok := s.read(DemoSessionKey); ok && sess.Provider == ProviderDemo {
		return sess, true
	}
	return s.read(SessionKey)
}

func (s *SessionStore) Save(sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.store.Write(keyFor(sess), string(data)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear forgets both saved sessions.
func (s *SessionStore) Clear() error {
	for _, key := range []string{DemoSessionKey, SessionKey} {
		if err := s.store.Write(key, ""); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	return nil
}

func (s *SessionStore) read(key string) (*Session, bool) {
	raw, ok := s.store.Read(key)
	if !ok || raw == "" {
		return nil, false
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.UID == "" {
		return nil, false
	}
	return &sess, true
}

func keyFor(sess Session) string {
	if sess.Provider == ProviderDemo {
		return DemoSessionKey
	}
	return SessionKey
}
