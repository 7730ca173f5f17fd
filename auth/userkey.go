// Package auth holds the credential types for Factiva Analytics: the
// user-key used by account, snapshot, stream and taxonomy services, and the
// OAuth service account required by article retrieval.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/factiva-io/factiva-analytics-go/internal/config"
	"github.com/factiva-io/factiva-analytics-go/internal/logger"
	"github.com/factiva-io/factiva-analytics-go/internal/request"
)

const userKeyLength = 32

// ErrInactiveUserKey is returned when the service rejects a key as unknown or
// disabled.
var ErrInactiveUserKey = errors.New("factiva user key does not exist or is inactive")

// UserKey is the API key credential issued by the Dow Jones Developer Support
// team. Immutable once constructed.
type UserKey struct {
	key string

	client  *request.Client
	baseURL string
	logger  zerolog.Logger

	mu         sync.Mutex
	cloudToken *CloudToken
}

// CloudToken is the service-account credential document attached to accounts
// with streaming access.
type CloudToken struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

// NewUserKey builds a UserKey from the given value, falling back to the
// FACTIVA_USERKEY environment variable when key is empty. Construction only
// reads the environment; it never calls the API.
func NewUserKey(key string) (*UserKey, error) {
	resolved, err := config.Resolve(key, config.EnvUserKey)
	if err != nil {
		return nil, fmt.Errorf("user key: %w", err)
	}
	if len(resolved) != userKeyLength {
		return nil, fmt.Errorf("factiva user key has the wrong length: got %d characters, want %d", len(resolved), userKeyLength)
	}

	log := logger.New()
	return &UserKey{
		key:     resolved,
		client:  request.New(log),
		baseURL: request.APIHost,
		logger:  log,
	}, nil
}

// Key returns the raw key value for request headers.
func (u *UserKey) Key() string {
	return u.key
}

// String renders the key masked, safe for logs and console output.
func (u *UserKey) String() string {
	u.mu.Lock()
	token := u.cloudToken
	u.mu.Unlock()

	tokenLabel := "<NotLoaded>"
	if token != nil {
		tokenLabel = maskString(token.PrivateKeyID, 4)
	}
	return fmt.Sprintf("UserKey(key: %s, cloud_token: %s)", maskString(u.key, 4), tokenLabel)
}

// maskString hides all but the last show characters of s.
func maskString(s string, show int) string {
	if len(s) <= show {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-show) + s[len(s)-show:]
}

// IsActive probes the taxonomy endpoint to verify the key is accepted by the
// service.
func (u *UserKey) IsActive(ctx context.Context) (bool, error) {
	resp, err := u.client.Get(ctx, u.baseURL+request.TaxonomyBasePath, request.UserKeyHeaders(u.key), nil)
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

type cloudTokenEnvelope struct {
	Data struct {
		Attributes struct {
			StreamingCredentials string `json:"streaming_credentials"`
		} `json:"attributes"`
	} `json:"data"`
}

// FetchCloudToken requests the account's streaming credentials and caches the
// parsed document on the key. Subsequent calls return the cached token.
func (u *UserKey) FetchCloudToken(ctx context.Context) (*CloudToken, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cloudToken != nil {
		return u.cloudToken, nil
	}

	u.logger.Debug().Msg("requesting cloud token")
	resp, err := u.client.Get(ctx, u.baseURL+request.StreamCredentialsPath, request.UserKeyHeaders(u.key), nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("streaming credentials authentication failed for the given user key")
	default:
		return nil, fmt.Errorf("unexpected streaming credentials response HTTP %d: %s", resp.StatusCode, resp.ErrorDetail())
	}

	var envelope cloudTokenEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return nil, err
	}
	raw := envelope.Data.Attributes.StreamingCredentials
	if raw == "" {
		return nil, fmt.Errorf("unable to get a cloud token for the given key: this account might have limited access")
	}

	var token CloudToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("malformed streaming credentials document: %w", err)
	}
	u.cloudToken = &token
	return u.cloudToken, nil
}
