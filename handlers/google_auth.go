package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pulse/apperr"
	"pulse/config"
	"pulse/database"
	"pulse/models"
	"pulse/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateCookie  = "pulse_oauth_state"
	oauthStateMaxAge  = 600
)

type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleProvider runs the OAuth code flow against Google.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the signed-in user's info.
	Exchange(ctx context.Context, code string) (*GoogleUserInfo, error)
}

type googleOAuth struct {
	config *oauth2.Config
}

// NewGoogleProvider returns nil when Google sign-in is not configured.
func NewGoogleProvider(cfg *config.Config) GoogleProvider {
	if !cfg.GoogleEnabled() {
		return nil
	}
	return &googleOAuth{config: &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}}
}

func (g *googleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *googleOAuth) Exchange(ctx context.Context, code string) (*GoogleUserInfo, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read userinfo: %w", err)
	}
	var info GoogleUserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse userinfo: %w", err)
	}
	return &info, nil
}

func (h *Handler) GoogleAuthURL(c *gin.Context) {
	if h.Google == nil {
		h.fail(c, "google auth url", apperr.Unavailable("Google sign-in is not configured"))
		return
	}

	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/", "", h.Config.Release(), true)
	response.OK(c, http.StatusOK, "Google sign-in URL generated", gin.H{"url": h.Google.AuthCodeURL(state)})
}

func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.Google == nil {
		h.fail(c, "google callback", apperr.Unavailable("Google sign-in is not configured"))
		return
	}

	state := c.Query("state")
	expected, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != expected {
		h.fail(c, "google callback", apperr.Validation("Invalid OAuth state"))
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.Config.Release(), true)

	code := c.Query("code")
	if code == "" {
		h.fail(c, "google callback", apperr.Validation("Authorization code missing"))
		return
	}

	ctx, cancel := h.timeout(c, requestTimeout)
	defer cancel()

	info, err := h.Google.Exchange(ctx, code)
	if err != nil {
		h.fail(c, "google callback", &apperr.Error{Kind: apperr.KindAuth, Message: "Google sign-in failed", Err: err})
		return
	}
	if info.ID == "" || info.Email == "" {
		h.fail(c, "google callback", apperr.Auth("Google account has no email"))
		return
	}
	// Accounts are matched and linked by email.
	if !info.VerifiedEmail {
		h.fail(c, "google callback", apperr.Auth("Google email is not verified"))
		return
	}

	user, err := h.googleUser(ctx, info)
	if err != nil {
		h.fail(c, "google callback", err)
		return
	}
	h.respondWithSession(c, http.StatusOK, "Login successful", user.ID)
}

// googleUser finds the account for a Google identity: by Google id, then by
// email (linking it), otherwise a new account is created.
func (h *Handler) googleUser(ctx context.Context, info *GoogleUserInfo) (*models.User, error) {
	user, err := h.Store.UserByGoogleID(ctx, info.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(info.Email)
	user, err = h.Store.UserByEmail(ctx, email)
	if err == nil {
		if err := h.Store.LinkGoogleAccount(ctx, user.ID, info.ID); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	googleID := info.ID
	for attempt := 0; attempt < 3; attempt++ {
		user = &models.User{
			Email:        email,
			Username:     usernameFromEmail(email),
			Name:         info.Name,
			Role:         models.RoleUser,
			AuthProvider: models.ProviderGoogle,
			GoogleID:     &googleID,
			Profile:      &models.UserProfile{ProfilePicture: info.Picture},
		}
		err = h.Store.CreateUser(ctx, user)
		if !errors.Is(err, database.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// usernameFromEmail builds "<local part without dots>_<4 hex chars>".
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.ReplaceAll(local, ".", "")
	if local == "" {
		local = "user"
	}
	if len(local) > 40 {
		local = local[:40]
	}
	return local + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
}
