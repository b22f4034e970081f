package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"mococa-backend/internal/auth"
	"mococa-backend/internal/fault"
)

const (
	providerName   = "discord"
	defaultAPIBase = "https://discord.com/api"
	cdnBase        = "https://cdn.discordapp.com"
)

// Provider implements OAuth authentication against Discord.
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
		return nil, errors.New("discord oauth config missing required fields")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     endpoints.Discord,
		Scopes: []string{
			"identify",
			"email",
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
		return nil, fmt.Errorf("discord token exchange failed: %w", err)
	}

	client := p.oauthConfig.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord profile fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from discord profile", resp.StatusCode)
	}

	var user struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
		Email    string `json:"email"`
		Verified bool   `json:"verified"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("discord profile parse failed: %w", err)
	}

	if !user.Verified {
		return nil, fault.New(fault.KindEmailNotVerified, "discord email is not verified")
	}

	if user.ID == "" || user.Email == "" {
		return nil, errors.New("discord profile missing required fields")
	}

	picture := ""
	if user.Avatar != "" {
		picture = fmt.Sprintf("%s/avatars/%s/%s.png", cdnBase, user.ID, user.Avatar)
	}

	return &auth.Profile{
		ID:       user.ID,
		Name:     user.Username,
		Email:    user.Email,
		Picture:  picture,
		Provider: providerName,
	}, nil
}
