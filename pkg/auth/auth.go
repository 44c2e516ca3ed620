// Package auth acquires bearer credentials for the storage REST API using
// the OAuth2 client-credentials flow.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/datalake-go/adlfs/pkg/metrics"
)

// DefaultScope is the storage resource scope requested during the exchange.
const DefaultScope = "https://storage.azure.com/.default"

// endpointTemplate builds the tenant token endpoint.
const endpointTemplate = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"

// Credential is a bearer token plus its type and expiry. Values are
// immutable; refresh replaces the whole credential through a Holder.
type Credential struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
}

// Expired reports whether the credential expires within margin. A zero
// expiry means the lifetime is unknown and the credential is kept.
func (c Credential) Expired(margin time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(c.ExpiresAt)
}

// OAuth2Token converts the credential to the x/oauth2 token shape for
// callers that compose with oauth2-aware transports.
func (c Credential) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: c.Token,
		TokenType:   c.TokenType,
		Expiry:      c.ExpiresAt,
	}
}

// AuthError is a non-success response from the token endpoint. It is fatal
// at construction time and never retried.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token exchange failed (%d): %s", e.Status, e.Body)
}

// Config holds the service-principal identity used for the exchange.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// Scope defaults to DefaultScope.
	Scope string

	// Endpoint overrides the tenant token endpoint. Tests point this at a
	// local fake.
	Endpoint string

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Exchanger performs client-credentials exchanges for one identity.
type Exchanger struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewExchanger creates an Exchanger, filling in endpoint and scope defaults.
func NewExchanger(cfg Config) *Exchanger {
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = fmt.Sprintf(endpointTemplate, cfg.TenantID)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exchanger{cfg: cfg, http: httpClient, logger: logger}
}

type tokenResponse struct {
	TokenType   string      `json:"token_type"`
	ExpiresIn   json.Number `json:"expires_in"`
	AccessToken string      `json:"access_token"`
}

// Connect exchanges the client credentials for a bearer token. Any
// non-success response surfaces as an AuthError.
func (e *Exchanger) Connect(ctx context.Context) (Credential, error) {
	form := url.Values{
		"client_id":     {e.cfg.ClientID},
		"client_secret": {e.cfg.ClientSecret},
		"scope":         {e.cfg.Scope},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.http.Do(req)
	if err != nil {
		metrics.RecordTokenRefresh(false)
		return Credential{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		metrics.RecordTokenRefresh(false)
		return Credential{}, &AuthError{Status: resp.StatusCode, Body: string(data)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		metrics.RecordTokenRefresh(false)
		return Credential{}, fmt.Errorf("parse token response: %w", err)
	}

	cred := Credential{
		Token:     tr.AccessToken,
		TokenType: tr.TokenType,
		ExpiresAt: expiry(tr),
	}
	metrics.RecordTokenRefresh(true)
	e.logger.Debug("credential acquired",
		zap.String("token_type", cred.TokenType),
		zap.Time("expires_at", cred.ExpiresAt))
	return cred, nil
}

// expiry derives the credential lifetime from expires_in, falling back to
// the exp claim of the access token when the field is absent.
func expiry(tr tokenResponse) time.Time {
	if secs, err := tr.ExpiresIn.Int64(); err == nil && secs > 0 {
		return time.Now().Add(time.Duration(secs) * time.Second)
	}
	return tokenExpiry(tr.AccessToken)
}

// tokenExpiry reads the exp claim without verifying the signature. The
// token is not trusted more for it; expiry only schedules refresh.
func tokenExpiry(raw string) time.Time {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
