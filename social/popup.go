package social

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// PopupFlow runs the server side of a social sign in popup: Begin builds the
// provider URL the popup opens, Complete turns the callback into a profile.
type PopupFlow struct {
	mu        sync.RWMutex
	providers map[string]SocialProvider
	states    StateManager
	pkce      bool
}

// PopupOption customizes a PopupFlow.
type PopupOption func(*PopupFlow)

// WithoutPKCE disables PKCE for providers that reject it.
func WithoutPKCE() PopupOption {
	return func(f *PopupFlow) {
		f.pkce = false
	}
}

// WithProvider registers a provider at construction time.
func WithProvider(p SocialProvider) PopupOption {
	return func(f *PopupFlow) {
		f.Register(p)
	}
}

// NewPopupFlow creates a popup flow that signs state with states.
func NewPopupFlow(states StateManager, opts ...PopupOption) *PopupFlow {
	f := &PopupFlow{
		providers: map[string]SocialProvider{},
		states:    states,
		pkce:      true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Register adds or replaces a provider.
func (f *PopupFlow) Register(p SocialProvider) {
	if p == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[strings.ToLower(p.Name())] = p
}

// Provider looks up a registered provider by name.
func (f *PopupFlow) Provider(name string) (SocialProvider, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p, ok := f.providers[strings.ToLower(name)]
	if !ok {
		err := ErrProviderNotFound.Clone()
		err.WithMetadata(map[string]any{"provider": name})
		return nil, err
	}
	return p, nil
}

// Providers returns the registered provider names, sorted.
func (f *PopupFlow) Providers() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.providers))
	for name := range f.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Begin returns the authorization URL for provider. termsAccepted and
// returnTo come back unchanged from Peek once the popup completes.
func (f *PopupFlow) Begin(ctx context.Context, provider string, termsAccepted bool, returnTo string) (string, error) {
	p, err := f.Provider(provider)
	if err != nil {
		return "", err
	}

	state := &OAuthState{
		Provider:      p.Name(),
		TermsAccepted: termsAccepted,
		ReturnTo:      returnTo,
	}

	opts := []AuthCodeOption{WithPopupDisplay(), WithPrompt("select_account")}
	if f.pkce {
		verifier, err := generateCodeVerifier()
		if err != nil {
			return "", err
		}
		state.CodeVerifier = verifier
		opts = append(opts, WithPKCE(computeCodeChallenge(verifier), "S256"))
	}

	token, err := f.states.Encode(state)
	if err != nil {
		return "", err
	}

	return p.AuthCodeURL(token, opts...), nil
}

// Peek decodes a callback state without contacting the provider.
func (f *PopupFlow) Peek(token string) (*OAuthState, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidState
	}
	return f.states.Decode(token)
}

// Complete validates the callback state, exchanges code and fetches the
// profile. Profiles without an email are rejected.
func (f *PopupFlow) Complete(ctx context.Context, provider, code, token string) (*SocialProfile, error) {
	p, err := f.Provider(provider)
	if err != nil {
		return nil, err
	}

	state, err := f.Peek(token)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(state.Provider, p.Name()) {
		return nil, ErrProviderMismatch
	}
	if strings.TrimSpace(code) == "" {
		return nil, wrapProviderError(ErrTokenExchangeFailed, p.Name(), "exchange", &ProviderError{
			Provider:    p.Name(),
			Operation:   "exchange",
			Code:        "missing_code",
			Description: "popup returned no authorization code",
		})
	}

	var exchangeOpts []ExchangeOption
	if state.CodeVerifier != "" {
		exchangeOpts = append(exchangeOpts, WithCodeVerifier(state.CodeVerifier))
	}

	tok, err := p.Exchange(ctx, code, exchangeOpts...)
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, p.Name(), "exchange", err)
	}

	profile, err := p.UserInfo(ctx, tok)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, p.Name(), "user_info", err)
	}
	if profile == nil || strings.TrimSpace(profile.Email) == "" {
		return nil, ErrMissingEmail
	}
	if profile.Provider == "" {
		profile.Provider = p.Name()
	}

	return profile, nil
}
