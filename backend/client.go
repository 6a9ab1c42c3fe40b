// Package backend talks to the application backend that owns user records.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/goliatone/go-lobby"
	"github.com/goliatone/go-print"
)

// Client implements lobby.RecordCreator and lobby.VerificationSink over
// the backend HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     lobby.Logger
}

var (
	_ lobby.RecordCreator    = (*Client)(nil)
	_ lobby.VerificationSink = (*Client)(nil)
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(client *Client) {
		client.apiKey = key
	}
}

// WithLogger sets the logger.
func WithLogger(logger lobby.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     lobby.DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	UID               string `json:"uid"`
	Email             string `json:"email"`
	Provider          string `json:"provider"`
	DisplayName       string `json:"display_name,omitempty"`
	EmailVerified     bool   `json:"email_verified"`
	IsNewRegistration bool   `json:"is_new_registration"`
}

// VerificationRequest is the body of POST /api/users/:uid/verification/:step.
type VerificationRequest struct {
	Step   string            `json:"step"`
	Values map[string]string `json:"values"`
}

// CreateUserRecord implements lobby.RecordCreator. A 409 means the record
// already exists and is not an error.
func (c *Client) CreateUserRecord(ctx context.Context, identity *lobby.Identity, isNewRegistration bool) error {
	if identity == nil {
		return &lobby.BackendError{Detail: "identity is required"}
	}

	body := CreateUserRequest{
		UID:               identity.UID,
		Email:             identity.Email,
		Provider:          string(identity.Provider),
		DisplayName:       identity.DisplayName,
		EmailVerified:     identity.EmailVerified,
		IsNewRegistration: isNewRegistration,
	}

	status, err := c.post(ctx, "/api/users", body)
	if status == http.StatusConflict {
		c.logger.Info("user record already exists", "uid", identity.UID)
		return nil
	}
	return err
}

// SubmitVerification implements lobby.VerificationSink.
func (c *Client) SubmitVerification(ctx context.Context, identity *lobby.Identity, step string, values map[string]string) error {
	if identity == nil || identity.UID == "" {
		return &lobby.BackendError{Detail: "identity is required"}
	}

	path := fmt.Sprintf("/api/users/%s/verification/%s", url.PathEscape(identity.UID), url.PathEscape(step))
	_, err := c.post(ctx, path, VerificationRequest{Step: step, Values: values})
	return err
}

// ActorHeader carries the UID of the signed in identity on whose behalf a
// request is made.
const ActorHeader = "X-Lobby-Actor"

func (c *Client) post(ctx context.Context, path string, payload any) (int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, &lobby.BackendError{Detail: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, &lobby.BackendError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if actor, ok := lobby.IdentityFromContext(ctx); ok {
		req.Header.Set(ActorHeader, actor.UID)
	}

	c.logger.Debug("backend request", "path", path, "payload", print.MaybePrettyJSON(payload))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &lobby.BackendError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, &lobby.BackendError{
		Status: resp.StatusCode,
		Detail: errorDetail(body),
	}
}

func errorDetail(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		switch v := payload.Error.(type) {
		case string:
			return v
		case map[string]any:
			if msg, ok := v["message"].(string); ok {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(body))
}
