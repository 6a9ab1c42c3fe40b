package firebase

import (
	"context"
	"errors"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/goliatone/go-lobby"
	"github.com/goliatone/go-lobby/social"
)

// Provider IDs Firebase uses for federated identities.
const (
	ProviderIDGoogle   = "google.com"
	ProviderIDFacebook = "facebook.com"
	ProviderIDPassword = "password"
)

const (
	detailEmailInUse    = "The email address is already in use by another account."
	detailAccountExists = "An account already exists with the same email address but different sign-in credentials."
)

var providerIDs = map[lobby.ProviderKind]string{
	lobby.ProviderGoogle:   ProviderIDGoogle,
	lobby.ProviderFacebook: ProviderIDFacebook,
	lobby.ProviderPassword: ProviderIDPassword,
}

// AuthClient is the subset of *auth.Client used by IdentityProvider.
type AuthClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
}

// PopupCompleter finishes a social popup and returns the provider profile.
type PopupCompleter interface {
	Complete(ctx context.Context, provider, code, state string) (*social.SocialProfile, error)
}

// IdentityProvider implements lobby.IdentityProvider backed by Firebase.
type IdentityProvider struct {
	client     AuthClient
	popup      PopupCompleter
	logger     lobby.Logger
	classify   func(error) lobby.ProviderErrorCode
	isNotFound func(error) bool
}

// Option customizes an IdentityProvider.
type Option func(*IdentityProvider)

// WithLogger sets the logger.
func WithLogger(logger lobby.Logger) Option {
	return func(p *IdentityProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithErrorClassifier replaces the Admin SDK error classification. It
// also decides which errors mean "user not found".
func WithErrorClassifier(classify func(error) lobby.ProviderErrorCode, isNotFound func(error) bool) Option {
	return func(p *IdentityProvider) {
		if classify != nil {
			p.classify = classify
		}
		if isNotFound != nil {
			p.isNotFound = isNotFound
		}
	}
}

// NewIdentityProvider creates a Firebase backed identity provider. popup may
// be nil when only email registration is offered.
func NewIdentityProvider(client AuthClient, popup PopupCompleter, opts ...Option) *IdentityProvider {
	p := &IdentityProvider{
		client:     client,
		popup:      popup,
		logger:     lobby.DefaultLogger(),
		classify:   ClassifyError,
		isNotFound: auth.IsUserNotFound,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// ClassifyError maps Admin SDK errors to provider error codes.
func ClassifyError(err error) lobby.ProviderErrorCode {
	switch {
	case err == nil:
		return ""
	case auth.IsEmailAlreadyExists(err):
		return lobby.CodeEmailAlreadyInUse
	}
	return lobby.CodeUnknown
}

// CreateIdentityWithEmailPassword implements lobby.IdentityProvider.
func (p *IdentityProvider) CreateIdentityWithEmailPassword(ctx context.Context, email, password string) (*lobby.Identity, error) {
	if p.client == nil {
		return nil, lobby.ErrProviderNotConfigured
	}

	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password)

	user, err := p.client.CreateUser(ctx, params)
	if err != nil {
		return nil, p.providerError(lobby.ProviderPassword, err)
	}

	identity := toIdentity(user, lobby.ProviderPassword)
	identity.IsNew = true
	return identity, nil
}

// SignInWithPopup implements lobby.IdentityProvider. An email that
// already belongs to a user without kind linked is reported as
// account-exists-with-different-credential.
func (p *IdentityProvider) SignInWithPopup(ctx context.Context, kind lobby.ProviderKind, grant lobby.PopupGrant) (*lobby.Identity, error) {
	if p.client == nil || p.popup == nil {
		return nil, lobby.ErrProviderNotConfigured
	}

	providerID, ok := providerIDs[kind]
	if !ok || kind == lobby.ProviderPassword {
		return nil, lobby.NewProviderError(kind, lobby.CodeUnknown, lobby.ErrUnknownProvider)
	}

	profile, err := p.popup.Complete(ctx, string(kind), grant.Code, grant.State)
	if err != nil {
		return nil, lobby.NewProviderError(kind, lobby.CodeUnknown, err)
	}
	email := strings.ToLower(strings.TrimSpace(profile.Email))

	existing, err := p.client.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if !hasProvider(existing, providerID) {
			p.logger.Warn("popup email belongs to another sign in method", "provider", kind, "uid", existing.UID)
			return nil, lobby.NewProviderError(kind, lobby.CodeAccountExistsWithDifferentCredential, errors.New(detailAccountExists))
		}
		return toIdentity(existing, kind), nil
	case !p.isNotFound(err):
		return nil, p.providerError(kind, err)
	}

	return p.createFederated(ctx, kind, providerID, email, profile)
}

func (p *IdentityProvider) createFederated(ctx context.Context, kind lobby.ProviderKind, providerID, email string, profile *social.SocialProfile) (*lobby.Identity, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		EmailVerified(profile.EmailVerified)
	if name := profile.DisplayName(); name != "" {
		params = params.DisplayName(name)
	}
	if profile.AvatarURL != "" {
		params = params.PhotoURL(profile.AvatarURL)
	}

	user, err := p.client.CreateUser(ctx, params)
	if err != nil {
		return nil, p.providerError(kind, err)
	}

	link := &auth.UserProvider{
		UID:         profile.ProviderUserID,
		ProviderID:  providerID,
		Email:       email,
		DisplayName: profile.DisplayName(),
		PhotoURL:    profile.AvatarURL,
	}
	linked, err := p.client.UpdateUser(ctx, user.UID, (&auth.UserToUpdate{}).ProviderToLink(link))
	if err != nil {
		if derr := p.client.DeleteUser(ctx, user.UID); derr != nil {
			p.logger.Error("failed to remove unlinked firebase user", "uid", user.UID, "error", derr)
		}
		return nil, p.providerError(kind, err)
	}
	if linked != nil {
		user = linked
	}

	identity := toIdentity(user, kind)
	identity.IsNew = true
	return identity, nil
}

// DeleteIdentity implements lobby.IdentityProvider. Deleting a missing
// user is not an error.
func (p *IdentityProvider) DeleteIdentity(ctx context.Context, uid string) error {
	if p.client == nil {
		return lobby.ErrProviderNotConfigured
	}
	if err := p.client.DeleteUser(ctx, uid); err != nil && !p.isNotFound(err) {
		return err
	}
	return nil
}

func (p *IdentityProvider) providerError(kind lobby.ProviderKind, err error) *lobby.ProviderError {
	code := p.classify(err)
	perr := lobby.NewProviderError(kind, code, err)
	if code == lobby.CodeEmailAlreadyInUse {
		perr.Detail = detailEmailInUse
	}
	return perr
}

func hasProvider(user *auth.UserRecord, providerID string) bool {
	if user == nil {
		return false
	}
	for _, info := range user.ProviderUserInfo {
		if info != nil && info.ProviderID == providerID {
			return true
		}
	}
	return false
}

func toIdentity(user *auth.UserRecord, kind lobby.ProviderKind) *lobby.Identity {
	identity := &lobby.Identity{Provider: kind}
	if user == nil {
		return identity
	}
	identity.EmailVerified = user.EmailVerified
	if user.UserInfo != nil {
		identity.UID = user.UID
		identity.Email = user.Email
		identity.DisplayName = user.DisplayName
	}
	return identity
}
