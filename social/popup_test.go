package social

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name        string
	authOpts    AuthCodeConfig
	exchangeCfg ExchangeConfig
	code        string
	exchangeErr error
	profile     *SocialProfile
	userInfoErr error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) AuthCodeURL(state string, opts ...AuthCodeOption) string {
	s.authOpts = ApplyAuthCodeOptions(nil, opts...)
	return "https://provider.test/auth?state=" + url.QueryEscape(state)
}

func (s *stubProvider) Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error) {
	s.code = code
	s.exchangeCfg = ApplyExchangeOptions(opts...)
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return &Token{AccessToken: "access"}, nil
}

func (s *stubProvider) UserInfo(ctx context.Context, token *Token) (*SocialProfile, error) {
	if s.userInfoErr != nil {
		return nil, s.userInfoErr
	}
	return s.profile, nil
}

func newTestFlow(providers ...SocialProvider) *PopupFlow {
	states := NewEncryptedStateManager(testEncKey, testHMACKey, time.Minute)
	opts := make([]PopupOption, 0, len(providers))
	for _, p := range providers {
		opts = append(opts, WithProvider(p))
	}
	return NewPopupFlow(states, opts...)
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	return parsed.Query().Get("state")
}

func TestPopupFlow_BeginCarriesTermsAndPKCE(t *testing.T) {
	google := &stubProvider{name: "google"}
	flow := newTestFlow(google)

	authURL, err := flow.Begin(context.Background(), "Google", true, "/casino")
	require.NoError(t, err)

	assert.Equal(t, "popup", google.authOpts.Display)
	assert.Equal(t, "select_account", google.authOpts.Prompt)
	assert.Equal(t, "S256", google.authOpts.CodeChallengeMethod)
	assert.NotEmpty(t, google.authOpts.CodeChallenge)

	state, err := flow.Peek(stateFrom(t, authURL))
	require.NoError(t, err)
	assert.Equal(t, "google", state.Provider)
	assert.True(t, state.TermsAccepted)
	assert.Equal(t, "/casino", state.ReturnTo)
	assert.Equal(t, computeCodeChallenge(state.CodeVerifier), google.authOpts.CodeChallenge)
}

func TestPopupFlow_BeginUnknownProvider(t *testing.T) {
	flow := newTestFlow(&stubProvider{name: "google"})

	_, err := flow.Begin(context.Background(), "github", true, "")
	require.Error(t, err)

	var rich *goerrors.Error
	require.True(t, errors.As(err, &rich))
	assert.Equal(t, TextCodeProviderNotFound, rich.TextCode)
}

func TestPopupFlow_CompleteExchangesWithVerifier(t *testing.T) {
	facebook := &stubProvider{
		name: "facebook",
		profile: &SocialProfile{
			ProviderUserID: "fb-1",
			Email:          "player@example.com",
			FirstName:      "Ada",
			LastName:       "Lovelace",
		},
	}
	flow := newTestFlow(facebook)

	authURL, err := flow.Begin(context.Background(), "facebook", true, "")
	require.NoError(t, err)
	token := stateFrom(t, authURL)
	state, err := flow.Peek(token)
	require.NoError(t, err)

	profile, err := flow.Complete(context.Background(), "facebook", "auth-code", token)
	require.NoError(t, err)

	assert.Equal(t, "auth-code", facebook.code)
	assert.Equal(t, state.CodeVerifier, facebook.exchangeCfg.CodeVerifier)
	assert.Equal(t, "facebook", profile.Provider)
	assert.Equal(t, "Ada Lovelace", profile.DisplayName())
}

func TestPopupFlow_CompleteFailures(t *testing.T) {
	google := &stubProvider{name: "google", profile: &SocialProfile{Email: "a@b.com"}}
	facebook := &stubProvider{name: "facebook"}
	flow := newTestFlow(google, facebook)

	authURL, err := flow.Begin(context.Background(), "google", true, "")
	require.NoError(t, err)
	token := stateFrom(t, authURL)

	_, err = flow.Complete(context.Background(), "google", "code", "")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = flow.Complete(context.Background(), "facebook", "code", token)
	assert.ErrorIs(t, err, ErrProviderMismatch)

	_, err = flow.Complete(context.Background(), "google", " ", token)
	assertTextCode(t, err, TextCodeTokenExchangeFail)

	google.exchangeErr = &ProviderError{Provider: "google", Operation: "exchange", Code: "invalid_grant"}
	_, err = flow.Complete(context.Background(), "google", "code", token)
	assertTextCode(t, err, TextCodeTokenExchangeFail)

	google.exchangeErr = nil
	google.userInfoErr = errors.New("boom")
	_, err = flow.Complete(context.Background(), "google", "code", token)
	assertTextCode(t, err, TextCodeUserInfoFail)

	google.userInfoErr = nil
	google.profile = &SocialProfile{ProviderUserID: "g-1"}
	_, err = flow.Complete(context.Background(), "google", "code", token)
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestPopupFlow_WithoutPKCE(t *testing.T) {
	google := &stubProvider{name: "google"}
	flow := NewPopupFlow(NewEncryptedStateManager(testEncKey, testHMACKey, time.Minute), WithoutPKCE(), WithProvider(google))

	_, err := flow.Begin(context.Background(), "google", false, "")
	require.NoError(t, err)
	assert.Empty(t, google.authOpts.CodeChallenge)
	assert.Equal(t, []string{"google"}, flow.Providers())
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Provider: "facebook", Operation: "user_info", Status: 400, Description: "bad token"}
	assert.Equal(t, "facebook user_info failed: bad token", err.Error())
	assert.Equal(t, 400, err.Metadata()["status"])
}

func assertTextCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var rich *goerrors.Error
	require.True(t, errors.As(err, &rich))
	assert.Equal(t, code, rich.TextCode)
}
