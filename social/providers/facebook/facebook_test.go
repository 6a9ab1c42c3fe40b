package facebook

import (
	"context"
	"errors"
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
		AppID:       "app-id",
		CallbackURL: "https://example.com/auth/social/facebook/callback",
	})

	authURL := provider.AuthCodeURL("state-token", social.WithPopupDisplay(), social.WithPKCE("challenge", ""))

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "/v19.0/dialog/oauth", parsed.Path)
	assert.Equal(t, "app-id", query.Get("client_id"))
	assert.Equal(t, "email,public_profile", query.Get("scope"))
	assert.Equal(t, "popup", query.Get("display"))
	assert.Equal(t, "state-token", query.Get("state"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
}

func TestProviderExchangeAndUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/oauth/access_token":
			assert.Equal(t, "app-id", query.Get("client_id"))
			assert.Equal(t, "app-secret", query.Get("client_secret"))
			assert.Equal(t, "auth-code", query.Get("code"))
			assert.Equal(t, "verifier", query.Get("code_verifier"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "fb-token",
				"token_type":   "bearer",
				"expires_in":   5183944,
			})
		case "/me":
			assert.Equal(t, "fb-token", query.Get("access_token"))
			assert.Equal(t, AppSecretProof("app-secret", "fb-token"), query.Get("appsecret_proof"))
			assert.Contains(t, query.Get("fields"), "email")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":         "10001",
				"email":      "player@example.com",
				"first_name": "Ada",
				"last_name":  "Lovelace",
				"picture":    map[string]any{"data": map[string]any{"url": "https://cdn.example.com/a.png"}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	provider := New(Config{
		AppID:       "app-id",
		AppSecret:   "app-secret",
		CallbackURL: "https://example.com/callback",
		GraphURL:    server.URL + "/",
	})

	token, err := provider.Exchange(context.Background(), "auth-code", social.WithCodeVerifier("verifier"))
	require.NoError(t, err)
	assert.Equal(t, "fb-token", token.AccessToken)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	profile, err := provider.UserInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "facebook", profile.Provider)
	assert.Equal(t, "10001", profile.ProviderUserID)
	assert.Equal(t, "player@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Ada Lovelace", profile.DisplayName())
	assert.Equal(t, "https://cdn.example.com/a.png", profile.AvatarURL)
}

func TestProviderGraphErrorNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "This authorization code has expired.",
				"type":    "OAuthException",
				"code":    100,
			},
		})
	}))
	defer server.Close()

	provider := New(Config{AppID: "app-id", GraphURL: server.URL})

	_, err := provider.Exchange(context.Background(), "stale")
	require.Error(t, err)

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "facebook", perr.Provider)
	assert.Equal(t, "OAuthException:100", perr.Code)
	assert.Equal(t, "facebook exchange failed: This authorization code has expired.", perr.Error())
}

func TestAppSecretProof(t *testing.T) {
	assert.Len(t, AppSecretProof("secret", "token"), 64)
	assert.NotEqual(t, AppSecretProof("secret", "token"), AppSecretProof("secret", "other"))
}
