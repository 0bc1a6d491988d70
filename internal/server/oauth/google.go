// Package oauth federates Google identities: the authorization code flow with
// a one-time state, ID token verification and token revocation.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Identity is the verified profile returned by Google.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	Picture       string
}

// Endpoints are Google's URLs; tests point them at a local server.
type Endpoints struct {
	Auth      string
	Token     string
	UserInfo  string
	TokenInfo string
	Revoke    string
}

var GoogleEndpoints = Endpoints{
	Auth:      google.Endpoint.AuthURL,
	Token:     google.Endpoint.TokenURL,
	UserInfo:  "https://www.googleapis.com/oauth2/v2/userinfo",
	TokenInfo: "https://oauth2.googleapis.com/tokeninfo",
	Revoke:    "https://oauth2.googleapis.com/revoke",
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoints    Endpoints
	Retry        common.RetryPolicy
}

var (
	ErrNotConfigured = errors.New("google oauth is not configured")
	ErrInvalidState  = errors.New("oauth state is invalid or expired")
)

var validIssuers = map[string]bool{"accounts.google.com": true, "https://accounts.google.com": true}

type Google struct {
	conf       *oauth2.Config
	endpoints  Endpoints
	states     StateStore
	httpClient *http.Client
	retry      common.RetryPolicy
	now        func() time.Time
}

func NewGoogle(cfg Config, states StateStore) *Google {
	ep := cfg.Endpoints
	if ep == (Endpoints{}) {
		ep = GoogleEndpoints
	}
	return &Google{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     oauth2.Endpoint{AuthURL: ep.Auth, TokenURL: ep.Token},
		},
		endpoints:  ep,
		states:     states,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      cfg.Retry,
		now:        time.Now,
	}
}

// Status describes the configuration, without secrets.
type Status struct {
	Enabled                bool   `json:"enabled"`
	ClientIDConfigured     bool   `json:"client_id_configured"`
	ClientSecretConfigured bool   `json:"client_secret_configured"`
	RedirectURI            string `json:"redirect_uri"`
}

func (g *Google) Status() Status {
	return Status{
		Enabled:                g.Configured(),
		ClientIDConfigured:     g.conf.ClientID != "",
		ClientSecretConfigured: g.conf.ClientSecret != "",
		RedirectURI:            g.conf.RedirectURL,
	}
}

func (g *Google) Configured() bool {
	return g.conf.ClientID != "" && g.conf.ClientSecret != ""
}

// LoginURL returns the consent page URL carrying a fresh single-use state.
func (g *Google) LoginURL(ctx context.Context) (string, error) {
	if !g.Configured() {
		return "", errors.Join(common.ErrorServiceUnavailable, ErrNotConfigured)
	}
	state, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	if err := g.states.Put(ctx, state); err != nil {
		return "", errors.Join(common.ErrorServiceUnavailable, err)
	}
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// ConsumeState accepts a state produced by LoginURL once.
func (g *Google) ConsumeState(ctx context.Context, state string) error {
	if state == "" || !g.states.Consume(ctx, state) {
		return errors.Join(common.ErrorUnauthorized, ErrInvalidState)
	}
	return nil
}

// Exchange trades an authorization code for the user's identity. Codes are
// single use, so the exchange itself is never retried.
func (g *Google) Exchange(ctx context.Context, code string) (Identity, error) {
	if !g.Configured() {
		return Identity{}, errors.Join(common.ErrorServiceUnavailable, ErrNotConfigured)
	}
	if code == "" {
		return Identity{}, fmt.Errorf("%w: empty authorization code", common.ErrorInvalidArgument)
	}

	tok, err := g.conf.Exchange(context.WithValue(ctx, oauth2.HTTPClient, g.httpClient), code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
			return Identity{}, fmt.Errorf("%w: google rejected the authorization code", common.ErrorUnauthorized)
		}
		return Identity{}, errors.Join(common.ErrorServiceUnavailable, err)
	}

	var u struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	err = g.getJSON(ctx, g.endpoints.UserInfo, tok.AccessToken, &u)
	if err != nil {
		return Identity{}, err
	}
	if u.Email == "" {
		return Identity{}, fmt.Errorf("%w: google account has no email", common.ErrorUnauthorized)
	}
	return Identity{
		Subject:       u.ID,
		Email:         u.Email,
		EmailVerified: u.VerifiedEmail,
		Name:          u.Name,
		GivenName:     u.GivenName,
		FamilyName:    u.FamilyName,
		Picture:       u.Picture,
	}, nil
}

// VerifyIDToken validates a Google ID token (the "credential" of Google
// Identity Services) and checks that it was minted for our client.
func (g *Google) VerifyIDToken(ctx context.Context, credential string) (Identity, error) {
	if g.conf.ClientID == "" {
		return Identity{}, errors.Join(common.ErrorServiceUnavailable, ErrNotConfigured)
	}
	if credential == "" {
		return Identity{}, fmt.Errorf("%w: empty credential", common.ErrorInvalidArgument)
	}

	var claims struct {
		Aud           string `json:"aud"`
		Iss           string `json:"iss"`
		Sub           string `json:"sub"`
		Exp           string `json:"exp"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	u := g.endpoints.TokenInfo + "?" + url.Values{"id_token": {credential}}.Encode()
	if err := g.getJSON(ctx, u, "", &claims); err != nil {
		return Identity{}, err
	}

	if claims.Aud != g.conf.ClientID || !validIssuers[claims.Iss] || claims.Email == "" {
		return Identity{}, fmt.Errorf("%w: id token not issued for this client", common.ErrorUnauthorized)
	}
	if exp, err := parseUnix(claims.Exp); err != nil || !g.now().Before(exp) {
		return Identity{}, fmt.Errorf("%w: id token expired", common.ErrorUnauthorized)
	}

	return Identity{
		Subject:       claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified == "true",
		Name:          claims.Name,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
		Picture:       claims.Picture,
	}, nil
}

// Revoke invalidates a Google access or refresh token.
func (g *Google) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", common.ErrorInvalidArgument)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoints.Revoke,
		strings.NewReader(url.Values{"token": {token}}.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return errors.Join(common.ErrorServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 500:
		return errors.Join(common.ErrorServiceUnavailable, fmt.Errorf("google revoke returned status %d", resp.StatusCode))
	default:
		return fmt.Errorf("%w: google revoke returned status %d", common.ErrorInvalidArgument, resp.StatusCode)
	}
}

// getJSON fetches u with bounded retries on transport errors and 5xx.
// 4xx answers are ErrorUnauthorized.
func (g *Google) getJSON(ctx context.Context, u, bearer string, out any) error {
	return common.Retry(ctx, g.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return common.Permanent(err)
		}
		if bearer != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+bearer)
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("google api returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return common.Permanent(fmt.Errorf("%w: google api returned status %d", common.ErrorUnauthorized, resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return common.Permanent(fmt.Errorf("%w: decode google response: %v", common.ErrorServiceUnavailable, err))
		}
		return nil
	})
}

func parseUnix(s string) (time.Time, error) {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}
