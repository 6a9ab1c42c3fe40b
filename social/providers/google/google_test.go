package google

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/goliatone/go-lobby/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderAuthCodeURL(t *testing.T) {
	provider := New(Config{
		ClientID:    "client-id",
		CallbackURL: "https://example.com/callback",
	})

	authURL := provider.AuthCodeURL("state-token",
		social.WithPKCE("challenge", "S256"),
		social.WithPrompt("select_account"),
		social.WithPopupDisplay(),
	)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "accounts.google.com", parsed.Host)
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://example.com/callback", query.Get("redirect_uri"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "select_account", query.Get("prompt"))
	assert.Equal(t, "popup", query.Get("display"))
	assert.Equal(t, "challenge", query.Get("code_challenge"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.Equal(t, "openid email profile", query.Get("scope"))
}

func TestProviderExchangeAndUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			values, err := url.ParseQuery(string(body))
			assert.NoError(t, err)

			assert.Equal(t, "authorization_code", values.Get("grant_type"))
			assert.Equal(t, "client-id", values.Get("client_id"))
			assert.Equal(t, "client-secret", values.Get("client_secret"))
			assert.Equal(t, "auth-code", values.Get("code"))
			assert.Equal(t, "verifier", values.Get("code_verifier"))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "token",
				"token_type":   "Bearer",
				"expires_in":   3600,
				"scope":        "openid email profile",
				"id_token":     "id-token",
			})
		case "/userinfo":
			assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"sub":            "user-1",
				"email":          "user@example.com",
				"email_verified": true,
				"name":           "User Example",
				"given_name":     "User",
				"family_name":    "Example",
				"picture":        "https://example.com/avatar.png",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	provider := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://example.com/callback",
		TokenURL:     server.URL + "/token",
		UserInfoURL:  server.URL + "/userinfo",
	})

	token, err := provider.Exchange(context.Background(), "auth-code", social.WithCodeVerifier("verifier"))
	require.NoError(t, err)
	assert.Equal(t, "token", token.AccessToken)
	assert.Equal(t, "id-token", token.IDToken)
	assert.Equal(t, []string{"openid", "email", "profile"}, token.Scopes)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	profile, err := provider.UserInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "google", profile.Provider)
	assert.Equal(t, "user-1", profile.ProviderUserID)
	assert.Equal(t, "user@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "User Example", profile.DisplayName())
}

func TestProviderExchangeErrorNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             "invalid_grant",
			"error_description": "Bad Request",
		})
	}))
	defer server.Close()

	provider := New(Config{ClientID: "client-id", TokenURL: server.URL})

	_, err := provider.Exchange(context.Background(), "stale")
	require.Error(t, err)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "exchange", perr.Operation)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, "invalid_grant", perr.Code)
	assert.Equal(t, "google exchange failed: Bad Request", perr.Error())
}

func TestProviderUserInfoErrorNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    401,
				"message": "Invalid Credentials",
				"status":  "UNAUTHENTICATED",
			},
		})
	}))
	defer server.Close()

	provider := New(Config{ClientID: "client-id", UserInfoURL: server.URL})

	_, err := provider.UserInfo(context.Background(), &social.Token{AccessToken: "bad"})
	require.Error(t, err)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "google", perr.Provider)
	assert.Equal(t, "user_info", perr.Operation)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Equal(t, "UNAUTHENTICATED", perr.Code)
}
