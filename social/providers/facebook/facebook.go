package facebook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/goliatone/go-lobby/social"
)

const (
	defaultAuthURL  = "https://www.facebook.com/v19.0/dialog/oauth"
	defaultGraphURL = "https://graph.facebook.com/v19.0"
	profileFields   = "id,name,email,first_name,last_name,picture.type(large)"
)

// Config holds Facebook Login configuration.
type Config struct {
	AppID       string
	AppSecret   string
	CallbackURL string
	Scopes      []string

	AuthURL  string
	GraphURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the permissions requested by default.
func DefaultScopes() []string {
	return []string{"email", "public_profile"}
}

// Provider implements social.SocialProvider for Facebook Login.
type Provider struct {
	config     Config
	httpClient *http.Client
	now        func() time.Time
}

// New creates a new Facebook provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = defaultGraphURL
	}
	cfg.GraphURL = strings.TrimRight(cfg.GraphURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
		now:        time.Now,
	}
}

// Name implements social.SocialProvider.
func (p *Provider) Name() string {
	return "facebook"
}

// AuthCodeURL implements social.SocialProvider. Facebook ignores prompt.
func (p *Provider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions(p.config.Scopes, opts...)

	params := url.Values{
		"client_id":     {p.config.AppID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(cfg.Scopes, ",")},
		"state":         {state},
	}
	if cfg.CodeChallenge != "" {
		method := cfg.CodeChallengeMethod
		if method == "" {
			method = "S256"
		}
		params.Set("code_challenge", cfg.CodeChallenge)
		params.Set("code_challenge_method", method)
	}
	if cfg.Display != "" {
		params.Set("display", cfg.Display)
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// Exchange implements social.SocialProvider.
func (p *Provider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	cfg := social.ApplyExchangeOptions(opts...)

	params := url.Values{
		"client_id":     {p.config.AppID},
		"client_secret": {p.config.AppSecret},
		"redirect_uri":  {p.config.CallbackURL},
		"code":          {code},
	}
	if cfg.CodeVerifier != "" {
		params.Set("code_verifier", cfg.CodeVerifier)
	}

	status, body, err := p.get(ctx, p.config.GraphURL+"/oauth/access_token?"+params.Encode())
	if err != nil {
		return nil, providerError("exchange", 0, "transport", "", err)
	}
	if status != http.StatusOK {
		code, desc := parseGraphError(body)
		return nil, providerError("exchange", status, code, desc, nil)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, providerError("exchange", status, "invalid_response", "failed to decode token response", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, providerError("exchange", status, "missing_access_token", "missing access token", nil)
	}

	token := &social.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
	}
	if tokenResp.ExpiresIn > 0 {
		token.ExpiresAt = p.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}
	return token, nil
}

// UserInfo implements social.SocialProvider. Requests are signed with
// appsecret_proof.
func (p *Provider) UserInfo(ctx context.Context, token *social.Token) (*social.SocialProfile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, providerError("user_info", 0, "missing_access_token", "missing access token", nil)
	}

	params := url.Values{
		"fields":       {profileFields},
		"access_token": {token.AccessToken},
	}
	if p.config.AppSecret != "" {
		params.Set("appsecret_proof", AppSecretProof(p.config.AppSecret, token.AccessToken))
	}

	status, body, err := p.get(ctx, p.config.GraphURL+"/me?"+params.Encode())
	if err != nil {
		return nil, providerError("user_info", 0, "transport", "", err)
	}
	if status != http.StatusOK {
		code, desc := parseGraphError(body)
		return nil, providerError("user_info", status, code, desc, nil)
	}

	var me graphUser
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, providerError("user_info", status, "invalid_response", "failed to decode profile response", err)
	}

	return mapProfile(&me), nil
}

// AppSecretProof signs an access token with the app secret.
func AppSecretProof(secret, accessToken string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil))
}

func (p *Provider) get(ctx context.Context, endpoint string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func parseGraphError(body []byte) (string, string) {
	var gerr graphError
	if err := json.Unmarshal(body, &gerr); err == nil && (gerr.Error.Message != "" || gerr.Error.Code != 0) {
		code := gerr.Error.Type
		if gerr.Error.Code != 0 {
			code = fmt.Sprintf("%s:%d", gerr.Error.Type, gerr.Error.Code)
		}
		return code, gerr.Error.Message
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "facebook request failed"
	}
	return "", msg
}

func providerError(operation string, status int, code, description string, err error) *social.ProviderError {
	return &social.ProviderError{
		Provider:    "facebook",
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
