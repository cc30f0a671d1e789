// Package oauth bridges the Google authorization-code flow to local identities.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dukerupert/mise/internal/model"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	// ErrTokenExchange means the provider refused the authorization code.
	ErrTokenExchange = errors.New("token exchange failed")
	// ErrUserInfo means the profile could not be fetched with the token.
	ErrUserInfo = errors.New("user info failed")
)

// Google runs the code flow against Google's endpoints.
type Google struct {
	cfg         *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// Option customises a Google provider.
type Option func(*Google)

// WithEndpoint points the token exchange at another authorization server.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(g *Google) { g.cfg.Endpoint = ep }
}

// WithUserInfoURL overrides the profile endpoint.
func WithUserInfoURL(u string) Option {
	return func(g *Google) { g.userInfoURL = u }
}

func NewGoogle(clientID, clientSecret, redirectURL string, opts ...Option) *Google {
	g := &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: defaultUserInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AuthCodeURL is where the browser is sent to consent.
func (g *Google) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state)
}

type userInfo struct {
	Sub        string `json:"sub"`
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// Exchange trades code for a token and returns the asserted profile.
func (g *Google) Exchange(ctx context.Context, code string) (*model.ExternalProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	tok.SetAuthHeader(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUserInfo, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUserInfo, err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("%w: profile has no email", ErrUserInfo)
	}

	subject := info.Sub
	if subject == "" {
		subject = info.ID
	}
	return &model.ExternalProfile{
		Subject:    subject,
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		Picture:    info.Picture,
	}, nil
}
