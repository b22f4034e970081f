package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"mococa-backend/internal/auth"
	"mococa-backend/internal/fault"
)

const (
	providerName   = "github"
	defaultAPIBase = "https://api.github.com"
)

// Provider implements OAuth authentication against GitHub. GitHub has no
// OIDC userinfo endpoint, so the profile comes from the REST API.
type Provider struct {
	oauthConfig *oauth2.Config
	apiBase     string
}

func New(
	clientID string,
	clientSecret string,
	redirectURL string,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     githuboauth.Endpoint,
		Scopes: []string{
			"read:user",
			"user:email",
		},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		apiBase:     defaultAPIBase,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Profile, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("github token exchange failed: %w", err)
	}

	client := p.oauthConfig.Client(ctx, token)

	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}

	if err := p.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, fmt.Errorf("github profile fetch failed: %w", err)
	}

	email := user.Email
	if email == "" {
		email, err = p.primaryEmail(ctx, client)
		if err != nil {
			return nil, err
		}
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &auth.Profile{
		ID:       strconv.FormatInt(user.ID, 10),
		Name:     name,
		Email:    email,
		Picture:  user.AvatarURL,
		Provider: providerName,
	}, nil
}

// primaryEmail queries the emails endpoint when the profile itself carries
// none (the address is private). The primary-flagged address wins, else the
// first listed; an account with no address at all cannot be resolved.
func (p *Provider) primaryEmail(ctx context.Context, client *http.Client) (string, error) {

	var emails []struct {
		Email   string `json:"email"`
		Primary bool   `json:"primary"`
	}

	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return "", fmt.Errorf("github emails fetch failed: %w", err)
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, nil
		}
	}

	if len(emails) > 0 {
		return emails[0].Email, nil
	}

	return "", fault.New(fault.KindNoEmailAvailable, "github account has no usable email")
}

func (p *Provider) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
