package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/cppla/postboard/config"
	"github.com/cppla/postboard/services"
	"github.com/cppla/postboard/utils"
)

const oauthStateTTL = 10 * time.Minute

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(config.Get(), ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, oauthStateTTL)

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := oauthConfig(config.Get(), provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()

	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		a.log.Warn("oauth code exchange failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	profile, err := fetchOAuthProfile(reqCtx, cfg, provider, token)
	if err != nil {
		a.log.Error("oauth profile fetch failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to load provider profile")
		return
	}

	user, err := a.users.FindOrCreateOAuth(ctx.Request.Context(), profile)
	if err != nil {
		respondServiceError(ctx, a.log, err)
		return
	}
	a.issueToken(ctx, http.StatusOK, user)
}

func oauthConfig(cfg config.AppConfig, provider string) (*oauth2.Config, error) {
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// fetchOAuthProfile asks the provider who the token belongs to. The oauth2 client adds
// the bearer header.
func fetchOAuthProfile(ctx context.Context, cfg *oauth2.Config, provider string, token *oauth2.Token) (services.OAuthProfile, error) {
	client := cfg.Client(ctx, token)
	switch provider {
	case "github":
		var payload struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := getJSON(ctx, client, "https://api.github.com/user", &payload); err != nil {
			return services.OAuthProfile{}, err
		}
		email, _ := fetchGitHubEmail(ctx, client)
		return services.OAuthProfile{
			Provider:  provider,
			ID:        fmt.Sprintf("%d", payload.ID),
			Username:  payload.Login,
			Email:     email,
			AvatarURL: payload.AvatarURL,
		}, nil
	case "google":
		var payload struct {
			ID      string `json:"id"`
			Email   string `json:"email"`
			Picture string `json:"picture"`
		}
		if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
			return services.OAuthProfile{}, err
		}
		return services.OAuthProfile{
			Provider:  provider,
			ID:        payload.ID,
			Username:  strings.SplitN(payload.Email, "@", 2)[0],
			Email:     payload.Email,
			AvatarURL: payload.Picture,
		}, nil
	default:
		return services.OAuthProfile{}, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchGitHubEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
		return "", err
	}
	for _, email := range emails {
		if email.Primary && email.Verified {
			return email.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
