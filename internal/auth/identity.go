package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const identityToolkitURL = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"

// IdentityToolkit signs users in with email and password against a hosted
// Identity Toolkit compatible REST endpoint.
type IdentityToolkit struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewIdentityToolkit(apiKey string) *IdentityToolkit {
	return newIdentityToolkit(apiKey, identityToolkitURL)
}

func newIdentityToolkit(apiKey, endpoint string) *IdentityToolkit {
	return &IdentityToolkit{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *IdentityToolkit) Authenticate(ctx context.Context, identifier, password string) (*Session, error) {
	body, err := json.Marshal(map[string]any{
		"email":             strings.TrimSpace(identifier),
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sign-in request: %w", err)
	}

	u := t.endpoint + "?key=" + url.QueryEscape(t.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if resp.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, errResp.Error.Message)
		}
		return nil, fmt.Errorf("identity api error: status %d, message %s", resp.StatusCode, errResp.Error.Message)
	}

	var signIn struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signIn); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if signIn.LocalID == "" {
		return nil, fmt.Errorf("identity api returned no user id")
	}

	return &Session{
		UID:         signIn.LocalID,
		Email:       signIn.Email,
		DisplayName: signIn.DisplayName,
		Provider:    ProviderIdentity,
	}, nil
}
