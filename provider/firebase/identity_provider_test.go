package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/goliatone/go-lobby"
	"github.com/goliatone/go-lobby/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	errEmailExists = errors.New("email exists")
	errNotFound    = errors.New("no user record found")
)

type mockAuthClient struct {
	mock.Mock
}

func (m *mockAuthClient) CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error) {
	args := m.Called(ctx, user)
	rec, _ := args.Get(0).(*auth.UserRecord)
	return rec, args.Error(1)
}

func (m *mockAuthClient) GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error) {
	args := m.Called(ctx, email)
	rec, _ := args.Get(0).(*auth.UserRecord)
	return rec, args.Error(1)
}

func (m *mockAuthClient) UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error) {
	args := m.Called(ctx, uid, user)
	rec, _ := args.Get(0).(*auth.UserRecord)
	return rec, args.Error(1)
}

func (m *mockAuthClient) DeleteUser(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

type stubPopup struct {
	profile *social.SocialProfile
	err     error
	calls   []string
}

func (s *stubPopup) Complete(ctx context.Context, provider, code, state string) (*social.SocialProfile, error) {
	s.calls = append(s.calls, provider+":"+code+":"+state)
	return s.profile, s.err
}

func testClassifier(err error) lobby.ProviderErrorCode {
	if errors.Is(err, errEmailExists) {
		return lobby.CodeEmailAlreadyInUse
	}
	return lobby.CodeUnknown
}

func newTestProvider(client AuthClient, popup PopupCompleter) *IdentityProvider {
	return NewIdentityProvider(client, popup,
		WithErrorClassifier(testClassifier, func(err error) bool { return errors.Is(err, errNotFound) }),
	)
}

func userRecord(uid, email string, providerIDs ...string) *auth.UserRecord {
	rec := &auth.UserRecord{
		UserInfo: &auth.UserInfo{UID: uid, Email: email, DisplayName: "Player"},
	}
	for _, id := range providerIDs {
		rec.ProviderUserInfo = append(rec.ProviderUserInfo, &auth.UserInfo{ProviderID: id, Email: email})
	}
	return rec
}

func TestCreateIdentityWithEmailPassword(t *testing.T) {
	client := &mockAuthClient{}
	client.On("CreateUser", mock.Anything, mock.Anything).Return(userRecord("uid-1", "a@b.com", ProviderIDPassword), nil).Once()

	identity, err := newTestProvider(client, nil).CreateIdentityWithEmailPassword(context.Background(), "a@b.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "uid-1", identity.UID)
	assert.Equal(t, "a@b.com", identity.Email)
	assert.Equal(t, lobby.ProviderPassword, identity.Provider)
	assert.True(t, identity.IsNew)
	client.AssertExpectations(t)
}

func TestCreateIdentityWithEmailPassword_EmailInUse(t *testing.T) {
	client := &mockAuthClient{}
	client.On("CreateUser", mock.Anything, mock.Anything).Return(nil, errEmailExists)

	_, err := newTestProvider(client, nil).CreateIdentityWithEmailPassword(context.Background(), "a@b.com", "secret")
	require.Error(t, err)

	var perr *lobby.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, lobby.CodeEmailAlreadyInUse, perr.Code)
	assert.Equal(t, lobby.MsgEmailAlreadyInUse, lobby.ProviderErrorMessage(lobby.FlowEmail, err))
}

func TestCreateIdentityWithEmailPassword_OtherErrorKeepsDetail(t *testing.T) {
	client := &mockAuthClient{}
	client.On("CreateUser", mock.Anything, mock.Anything).Return(nil, errors.New("password must be a string at least 6 characters long"))

	_, err := newTestProvider(client, nil).CreateIdentityWithEmailPassword(context.Background(), "a@b.com", "x")
	require.Error(t, err)
	assert.Equal(t, lobby.CodeUnknown, lobby.ClassifyProviderError(err))
	assert.Contains(t, err.Error(), "at least 6 characters")
}

func TestSignInWithPopup_ExistingLinkedUser(t *testing.T) {
	client := &mockAuthClient{}
	client.On("GetUserByEmail", mock.Anything, "player@example.com").
		Return(userRecord("uid-9", "player@example.com", ProviderIDGoogle), nil)

	popup := &stubPopup{profile: &social.SocialProfile{ProviderUserID: "g-1", Email: " Player@Example.com "}}

	identity, err := newTestProvider(client, popup).SignInWithPopup(context.Background(), lobby.ProviderGoogle, lobby.PopupGrant{Code: "c", State: "s"})
	require.NoError(t, err)

	assert.Equal(t, []string{"google:c:s"}, popup.calls)
	assert.Equal(t, "uid-9", identity.UID)
	assert.Equal(t, lobby.ProviderGoogle, identity.Provider)
	assert.False(t, identity.IsNew)
	client.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestSignInWithPopup_AccountExistsWithDifferentCredential(t *testing.T) {
	client := &mockAuthClient{}
	client.On("GetUserByEmail", mock.Anything, "player@example.com").
		Return(userRecord("uid-9", "player@example.com", ProviderIDPassword), nil)

	popup := &stubPopup{profile: &social.SocialProfile{ProviderUserID: "fb-1", Email: "player@example.com"}}

	_, err := newTestProvider(client, popup).SignInWithPopup(context.Background(), lobby.ProviderFacebook, lobby.PopupGrant{Code: "c", State: "s"})
	require.Error(t, err)
	assert.Equal(t, lobby.CodeAccountExistsWithDifferentCredential, lobby.ClassifyProviderError(err))
	assert.Equal(t, lobby.MsgAccountExistsWithDifferentCredential, lobby.ProviderErrorMessage(lobby.FlowSocial, err))
}

func TestSignInWithPopup_CreatesAndLinksNewUser(t *testing.T) {
	client := &mockAuthClient{}
	client.On("GetUserByEmail", mock.Anything, "new@example.com").Return(nil, errNotFound)
	client.On("CreateUser", mock.Anything, mock.Anything).Return(userRecord("uid-new", "new@example.com"), nil).Once()
	client.On("UpdateUser", mock.Anything, "uid-new", mock.Anything).Return(userRecord("uid-new", "new@example.com", ProviderIDFacebook), nil).Once()

	popup := &stubPopup{profile: &social.SocialProfile{ProviderUserID: "fb-2", Email: "new@example.com", Name: "New Player"}}

	identity, err := newTestProvider(client, popup).SignInWithPopup(context.Background(), lobby.ProviderFacebook, lobby.PopupGrant{Code: "c", State: "s"})
	require.NoError(t, err)

	assert.Equal(t, "uid-new", identity.UID)
	assert.Equal(t, lobby.ProviderFacebook, identity.Provider)
	assert.True(t, identity.IsNew)
	client.AssertExpectations(t)
}

func TestSignInWithPopup_LinkFailureRemovesUser(t *testing.T) {
	client := &mockAuthClient{}
	client.On("GetUserByEmail", mock.Anything, "new@example.com").Return(nil, errNotFound)
	client.On("CreateUser", mock.Anything, mock.Anything).Return(userRecord("uid-new", "new@example.com"), nil)
	client.On("UpdateUser", mock.Anything, "uid-new", mock.Anything).Return(nil, errors.New("link rejected"))
	client.On("DeleteUser", mock.Anything, "uid-new").Return(nil).Once()

	popup := &stubPopup{profile: &social.SocialProfile{ProviderUserID: "g-2", Email: "new@example.com"}}

	_, err := newTestProvider(client, popup).SignInWithPopup(context.Background(), lobby.ProviderGoogle, lobby.PopupGrant{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link rejected")
	client.AssertExpectations(t)
}

func TestSignInWithPopup_PopupFailure(t *testing.T) {
	client := &mockAuthClient{}
	popup := &stubPopup{err: social.ErrStateExpired}

	_, err := newTestProvider(client, popup).SignInWithPopup(context.Background(), lobby.ProviderGoogle, lobby.PopupGrant{})
	require.Error(t, err)

	var perr *lobby.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, lobby.CodeUnknown, perr.Code)
	assert.Equal(t, lobby.ProviderGoogle, perr.Provider)
	client.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
}

func TestSignInWithPopup_NotConfigured(t *testing.T) {
	_, err := NewIdentityProvider(&mockAuthClient{}, nil).SignInWithPopup(context.Background(), lobby.ProviderGoogle, lobby.PopupGrant{})
	assert.Error(t, err)

	_, err = newTestProvider(&mockAuthClient{}, &stubPopup{}).SignInWithPopup(context.Background(), lobby.ProviderPassword, lobby.PopupGrant{})
	assert.Error(t, err)
}

func TestDeleteIdentity(t *testing.T) {
	client := &mockAuthClient{}
	client.On("DeleteUser", mock.Anything, "gone").Return(errNotFound)
	client.On("DeleteUser", mock.Anything, "broken").Return(errors.New("quota"))
	client.On("DeleteUser", mock.Anything, "ok").Return(nil)

	p := newTestProvider(client, nil)
	assert.NoError(t, p.DeleteIdentity(context.Background(), "gone"))
	assert.NoError(t, p.DeleteIdentity(context.Background(), "ok"))
	assert.Error(t, p.DeleteIdentity(context.Background(), "broken"))
}

func TestClassifyErrorDefaults(t *testing.T) {
	assert.Equal(t, lobby.ProviderErrorCode(""), ClassifyError(nil))
	assert.Equal(t, lobby.CodeUnknown, ClassifyError(errors.New("other")))
}
