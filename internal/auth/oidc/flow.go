package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Scopes requested from the provider; enough to retrieve the user's
// profile and verified email.
var Scopes = []string{"openid", "email", "profile"}

// ClientConfig is the immutable OAuth client configuration. Each request
// builds its own oauth2.Config from this value and the current provider
// metadata; there is no shared mutable client object.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
}

// Flow orchestrates the authorization code handshake: build the
// authorization redirect, exchange the code for tokens, fetch and validate
// userinfo claims.
type Flow struct {
	cfg        ClientConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewFlow creates a flow controller from the immutable client configuration
func NewFlow(cfg ClientConfig, httpClient *http.Client) *Flow {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Flow{
		cfg:        cfg,
		httpClient: httpClient,
		log:        slog.Default().With(slog.String("component", "oidc")),
	}
}

// oauthConfig builds the per-request oauth2 configuration. Client
// credentials are sent as HTTP Basic auth on the token request.
func (f *Flow) oauthConfig(md *ProviderMetadata, callbackURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
		RedirectURL:  callbackURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   md.AuthorizationEndpoint,
			TokenURL:  md.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthCodeURL builds the provider authorization URL for the given callback.
// Deterministic for the same inputs; performs no network call.
func (f *Flow) AuthCodeURL(md *ProviderMetadata, callbackURL, state string) string {
	return f.oauthConfig(md, callbackURL).AuthCodeURL(state)
}

// CompleteLogin exchanges the authorization code for tokens, fetches the
// userinfo claims and validates them. Each step is a hard precondition for
// the next. The returned identity has not been persisted.
func (f *Flow) CompleteLogin(ctx context.Context, md *ProviderMetadata, code, callbackURL string) (*Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)

	token, err := f.oauthConfig(md, callbackURL).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", ErrTokenExchange)
	}

	claims, err := f.fetchUserinfo(ctx, md.UserinfoEndpoint, token.AccessToken)
	if err != nil {
		return nil, err
	}

	identity, err := claims.identity()
	if err != nil {
		return nil, err
	}

	f.log.Info("login completed",
		slog.String("subject", identity.Subject),
		slog.String("email", identity.Email))

	return identity, nil
}

// fetchUserinfo calls the userinfo endpoint bearing the access token
func (f *Flow) fetchUserinfo(ctx context.Context, endpoint, accessToken string) (*userinfoClaims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrUserInfoFetch, err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfoFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo endpoint returned status %d", ErrUserInfoFetch, resp.StatusCode)
	}

	var claims userinfoClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("%w: decoding userinfo: %v", ErrUserInfoFetch, err)
	}

	return &claims, nil
}
