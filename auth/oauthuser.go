package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/factiva-io/factiva-analytics-go/internal/config"
	"github.com/factiva-io/factiva-analytics-go/internal/logger"
)

const (
	// AuthHost is the Dow Jones identity service origin.
	AuthHost = "https://accounts.dowjones.com"
	// TokenPath is the OAuth2 token endpoint under AuthHost.
	TokenPath = "/oauth2/v1/token"
	// TokenExpiryBuffer is how long before expiry a bearer token is treated
	// as stale and re-issued.
	TokenExpiryBuffer = 5 * time.Minute
)

// OAuthUser is the OAuth service-account credential used by the Article
// Retrieval service. The client id, username and password fall back to the
// FACTIVA_CLIENTID, FACTIVA_USERNAME and FACTIVA_PASSWORD environment
// variables.
type OAuthUser struct {
	clientID string
	username string
	password string

	authURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	mu        sync.Mutex
	bearer    string
	expiresAt time.Time
}

// NewOAuthUser builds an OAuthUser from the given values, resolving each
// empty field from its environment variable. It fails naming the first
// variable that cannot be resolved. No network call happens at construction.
func NewOAuthUser(clientID, username, password string) (*OAuthUser, error) {
	resolvedID, err := config.Resolve(clientID, config.EnvClientID)
	if err != nil {
		return nil, fmt.Errorf("client id: %w", err)
	}
	resolvedUser, err := config.Resolve(username, config.EnvUsername)
	if err != nil {
		return nil, fmt.Errorf("username: %w", err)
	}
	resolvedPassword, err := config.Resolve(password, config.EnvPassword)
	if err != nil {
		return nil, fmt.Errorf("password: %w", err)
	}

	return &OAuthUser{
		clientID:   resolvedID,
		username:   resolvedUser,
		password:   resolvedPassword,
		authURL:    AuthHost + TokenPath,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.New(),
	}, nil
}

// ClientID returns the OAuth client identifier.
func (o *OAuthUser) ClientID() string {
	return o.clientID
}

// String renders the credential with the secret fields masked.
func (o *OAuthUser) String() string {
	o.mu.Lock()
	status := "NotIssued"
	if o.bearer != "" {
		if time.Now().Before(o.expiresAt) {
			status = "OK"
		} else {
			status = "Expired"
		}
	}
	o.mu.Unlock()
	return fmt.Sprintf("OAuthUser(client_id: %s, username: %s, token_status: %s)",
		o.clientID, maskString(o.username, 4), status)
}

// JWT returns a valid bearer token for Authorization headers, issuing or
// re-issuing it when the cached one is missing or about to expire.
func (o *OAuthUser) JWT(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.bearer != "" && time.Now().Add(TokenExpiryBuffer).Before(o.expiresAt) {
		return o.bearer, nil
	}

	o.logger.Debug().Str("client_id", o.clientID).Msg("issuing OAuth bearer token")
	if err := o.authenticate(ctx); err != nil {
		return "", err
	}
	return o.bearer, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// authenticate runs the vendor's two-step grant: a password grant returning
// an id_token, then a JWT bearer assertion grant exchanging it for the API
// access token. Callers must hold o.mu.
func (o *OAuthUser) authenticate(ctx context.Context) error {
	idToken, err := o.requestToken(ctx, url.Values{
		"client_id":  {o.clientID},
		"username":   {o.username},
		"password":   {o.password},
		"connection": {"service-account"},
		"grant_type": {"password"},
		"scope":      {"openid service_account_id"},
	}, "id_token")
	if err != nil {
		return fmt.Errorf("password grant failed: %w", err)
	}

	bearer, err := o.requestToken(ctx, url.Values{
		"client_id":  {o.clientID},
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"scope":      {"openid pib"},
		"assertion":  {idToken},
	}, "access_token")
	if err != nil {
		return fmt.Errorf("bearer grant failed: %w", err)
	}

	expiresAt, err := jwtExpiry(bearer)
	if err != nil {
		return err
	}

	o.bearer = bearer
	o.expiresAt = expiresAt
	o.logger.Debug().Time("expires_at", expiresAt).Msg("OAuth bearer token issued")
	return nil
}

func (o *OAuthUser) requestToken(ctx context.Context, form url.Values, field string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("unexpected token endpoint response: %w", err)
	}

	value := token.AccessToken
	if field == "id_token" {
		value = token.IDToken
	}
	if value == "" {
		return "", fmt.Errorf("token endpoint response is missing %s", field)
	}
	return value, nil
}

// jwtExpiry reads the exp claim out of a JWS compact token. The token must
// have the three dot-separated segments of a signed JWT.
func jwtExpiry(token string) (time.Time, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return time.Time{}, fmt.Errorf("unexpected bearer token format: want 3 segments, got %d", len(segments))
	}
	payload, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed bearer token payload: %w", err)
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, fmt.Errorf("malformed bearer token claims: %w", err)
	}
	if claims.Exp == 0 {
		return time.Time{}, fmt.Errorf("bearer token is missing the exp claim")
	}
	return time.Unix(claims.Exp, 0), nil
}
