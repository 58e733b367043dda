// Package identity is a client for the identity provider management API
// (Auth0 compatible): user lookup, role assignment and user removal.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

var ErrUserNotFound = errors.New("identity: user not found")

type Config struct {
	// BaseURL is the tenant root, e.g. https://tenant.us.auth0.com
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// User is the provider's profile of a person.
type User struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Nickname   string `json:"nickname"`
}

type apiError struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

const tokenCacheKey = "management_token"

type Client struct {
	httpClient *resty.Client
	cfg        Config
	tokens     *cache.Cache
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetError(&apiError{})

	return &Client{
		httpClient: client,
		cfg:        cfg,
		tokens:     cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

// token returns a cached client-credentials token for the management API,
// requesting a new one a minute before expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	if tok, ok := c.tokens.Get(tokenCacheKey); ok {
		return tok.(string), nil
	}

	var result tokenResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"audience":      c.cfg.BaseURL + "/api/v2/",
		}).
		SetResult(&result).
		Post("/oauth/token")
	if err != nil {
		return "", fmt.Errorf("failed to request management token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("management token request returned status %d", resp.StatusCode())
	}

	ttl := time.Duration(result.ExpiresIn)*time.Second - time.Minute
	if ttl > 0 {
		c.tokens.Set(tokenCacheKey, result.AccessToken, ttl)
	}
	return result.AccessToken, nil
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	return c.httpClient.R().SetContext(ctx).SetAuthToken(tok), nil
}

func checkResponse(resp *resty.Response, op string) error {
	if !resp.IsError() {
		return nil
	}
	if resp.StatusCode() == 404 {
		return ErrUserNotFound
	}
	msg := resp.Status()
	if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
		msg = e.Message
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), msg)
}

func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var user User
	resp, err := req.SetResult(&user).Get("/api/v2/users/" + url.PathEscape(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := checkResponse(resp, "get user"); err != nil {
		return nil, err
	}
	return &user, nil
}

// AssignRole adds userID to the members of roleID.
func (c *Client) AssignRole(ctx context.Context, roleID, userID string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetBody(map[string][]string{"users": {userID}}).
		Post("/api/v2/roles/" + url.PathEscape(roleID) + "/users")
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return checkResponse(resp, "assign role")
}

func (c *Client) UsersByEmail(ctx context.Context, email string) ([]User, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var users []User
	resp, err := req.
		SetQueryParam("email", email).
		SetResult(&users).
		Get("/api/v2/users-by-email")
	if err != nil {
		return nil, fmt.Errorf("failed to look up users by email: %w", err)
	}
	if err := checkResponse(resp, "users by email"); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.Delete("/api/v2/users/" + url.PathEscape(userID))
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkResponse(resp, "delete user")
}

// DeleteUsersByEmail removes every provider account registered with email.
func (c *Client) DeleteUsersByEmail(ctx context.Context, email string) error {
	users, err := c.UsersByEmail(ctx, email)
	if err != nil {
		return err
	}
	for _, u := range users {
		if err := c.DeleteUser(ctx, u.UserID); err != nil && !errors.Is(err, ErrUserNotFound) {
			return err
		}
		log.Info().Str("user_id", u.UserID).Msg("Deleted identity provider user")
	}
	return nil
}
