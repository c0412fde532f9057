// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/models"
)

// Profile is the caller's identity as reported by the identity provider.
type Profile struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// Membership is the caller's membership in one guild.
type Membership struct {
	Roles []string `json:"roles"`
}

// maxErrorBodyBytes caps how much of an upstream error body is kept for diagnostics.
const maxErrorBodyBytes = 512

// DiscordClient performs the OAuth2 authorization-code flow against Discord
// and reads the caller's profile and guild membership.
//
// OAuth Flow:
//  1. Redirect the browser to BuildAuthorizationURL()
//  2. Discord redirects back with ?code=...
//  3. ExchangeCode trades the code for an access token (server-side)
//  4. FetchProfile / FetchMembership use that token as a bearer credential
//
// Every call is a single attempt. Failures are *models.UpstreamError.
// An optional outbound request budget rejects excess calls with a 429
// instead of queueing them, so no request waits on another.
type DiscordClient struct {
	oauth      *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewDiscordClient creates a client from identity provider configuration.
func NewDiscordClient(cfg config.DiscordConfig) *DiscordClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limit, burst := rate.Inf, 1
	if cfg.RequestRate > 0 {
		limit = rate.Limit(cfg.RequestRate)
		burst = int(math.Max(1, math.Ceil(cfg.RequestRate)))
	}

	return &DiscordClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// BuildAuthorizationURL returns the provider authorization URL the browser
// is redirected to. The URL carries no secrets.
//
// Example URL:
//
//	https://discord.com/api/oauth2/authorize?client_id=123&redirect_uri=...&
//	  response_type=code&scope=identify+guilds.members.read
func (c *DiscordClient) BuildAuthorizationURL() string {
	u, err := url.Parse(c.oauth.Endpoint.AuthURL)
	if err != nil {
		return c.oauth.Endpoint.AuthURL
	}
	params := u.Query()
	params.Set("client_id", c.oauth.ClientID)
	params.Set("redirect_uri", c.oauth.RedirectURL)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(c.oauth.Scopes, " "))
	u.RawQuery = params.Encode()
	return u.String()
}

// ExchangeCode trades an authorization code for an access token.
func (c *DiscordClient) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &models.UpstreamError{
			Service:   models.ServiceIdentity,
			Operation: "token_exchange",
			Message:   "missing authorization code",
		}
	}
	if err := c.allow("token_exchange"); err != nil {
		return nil, err
	}

	// The oauth2 package picks up our client (and its timeout) from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	start := time.Now()
	token, err := c.oauth.Exchange(ctx, code)
	observeUpstream("token_exchange", start, exchangeStatus(err))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &models.UpstreamError{
				Service:   models.ServiceIdentity,
				Operation: "token_exchange",
				Status:    retrieveErr.Response.StatusCode,
				Message:   retrieveErrorMessage(retrieveErr),
				Cause:     err,
			}
		}
		return nil, c.transportError("token_exchange", err)
	}
	if token.AccessToken == "" {
		return nil, &models.UpstreamError{
			Service:   models.ServiceIdentity,
			Operation: "token_exchange",
			Message:   "token response missing access_token",
		}
	}
	return token, nil
}

// FetchProfile reads the caller's stable id and username.
func (c *DiscordClient) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile Profile
	status, err := c.getJSON(ctx, "fetch_profile", "/users/@me", accessToken, &profile)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &models.UpstreamError{
			Service:   models.ServiceIdentity,
			Operation: "fetch_profile",
			Status:    status,
			Message:   "unexpected status",
		}
	}
	if profile.ID == "" {
		return nil, &models.UpstreamError{
			Service:   models.ServiceIdentity,
			Operation: "fetch_profile",
			Status:    status,
			Message:   "profile response missing id",
		}
	}
	return &profile, nil
}

// FetchMembership reads the caller's roles in guildID. A caller who is not a
// member of the guild gets an empty membership, not an error.
func (c *DiscordClient) FetchMembership(ctx context.Context, accessToken, guildID string) (*Membership, error) {
	path := "/users/@me/guilds/" + url.PathEscape(guildID) + "/member"

	var membership Membership
	status, err := c.getJSON(ctx, "fetch_membership", path, accessToken, &membership)
	if err != nil {
		var upstreamErr *models.UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.Status == http.StatusNotFound {
			return &Membership{Roles: []string{}}, nil
		}
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &models.UpstreamError{
			Service:   models.ServiceIdentity,
			Operation: "fetch_membership",
			Status:    status,
			Message:   "unexpected status",
		}
	}
	if membership.Roles == nil {
		membership.Roles = []string{}
	}
	return &membership, nil
}

// allow spends one unit of the outbound request budget. It never blocks.
func (c *DiscordClient) allow(operation string) error {
	if c.limiter.Allow() {
		return nil
	}
	return &models.UpstreamError{
		Service:   models.ServiceIdentity,
		Operation: operation,
		Status:    http.StatusTooManyRequests,
		Message:   "identity provider request budget exhausted",
	}
}

// getJSON performs an authenticated GET and decodes a 200 response into out.
// Non-2xx responses are returned as *models.UpstreamError.
func (c *DiscordClient) getJSON(ctx context.Context, operation, path, accessToken string, out interface{}) (int, error) {
	if err := c.allow(operation); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+path, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observeUpstream(operation, start, 0)
		return 0, c.transportError(operation, err)
	}
	observeUpstream(operation, start, resp.StatusCode)
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return resp.StatusCode, &models.UpstreamError{
			Service:   models.ServiceIdentity,
			Operation: operation,
			Status:    resp.StatusCode,
			Message:   upstreamMessage(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, &models.UpstreamError{
			Service:   models.ServiceIdentity,
			Operation: operation,
			Status:    resp.StatusCode,
			Message:   "malformed response body",
			Cause:     err,
		}
	}
	return resp.StatusCode, nil
}

func (c *DiscordClient) transportError(operation string, err error) error {
	return &models.UpstreamError{
		Service:   models.ServiceIdentity,
		Operation: operation,
		Message:   "identity provider request failed",
		Cause:     err,
	}
}

// upstreamMessage extracts Discord's {"message": "..."} error text, falling
// back to the (truncated) raw body.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// exchangeStatus recovers the HTTP status of a failed token exchange, 200 on success.
func exchangeStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode
	}
	return 0
}

func retrieveErrorMessage(err *oauth2.RetrieveError) string {
	if err.ErrorCode != "" {
		if err.ErrorDescription != "" {
			return err.ErrorCode + ": " + err.ErrorDescription
		}
		return err.ErrorCode
	}
	if len(err.Body) > maxErrorBodyBytes {
		return upstreamMessage(err.Body[:maxErrorBodyBytes])
	}
	return upstreamMessage(err.Body)
}
