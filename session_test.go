package lobby_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-lobby"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockConfig struct {
	signingKey string
	tokenExp   int
	audience   []string
	issuer     string
}

func (m *mockConfig) GetSigningKey() string   { return m.signingKey }
func (m *mockConfig) GetContextKey() string   { return "lobby_jwt" }
func (m *mockConfig) GetTokenExpiration() int { return m.tokenExp }
func (m *mockConfig) GetIssuer() string       { return m.issuer }
func (m *mockConfig) GetAudience() []string   { return m.audience }
func (m *mockConfig) GetCookieSecure() bool   { return false }

func newMockConfig() *mockConfig {
	return &mockConfig{
		signingKey: "test-signing-key",
		tokenExp:   1,
		audience:   []string{"lobby:web"},
		issuer:     "lobby-test",
	}
}

// pathCtx overrides Path() from the router MockContext.
type pathCtx struct {
	*router.MockContext
	path string
	std  context.Context
}

func (m *pathCtx) Path() string {
	return m.path
}

func newPathCtx(path string) *pathCtx {
	ctx := &pathCtx{MockContext: router.NewMockContext(), path: path, std: context.Background()}
	ctx.On("Locals", mock.Anything, mock.Anything).Return(nil).Maybe()
	return ctx
}

func (m *pathCtx) Context() context.Context {
	return m.std
}

func (m *pathCtx) SetContext(ctx context.Context) {
	m.std = ctx
}

func TestSessionBoundaryEstablishAndMiddleware(t *testing.T) {
	cfg := newMockConfig()
	tokens := lobby.NewTokenService(cfg, quietLogger{})
	boundary := lobby.NewSessionBoundary(cfg, tokens, nil, quietLogger{})
	identity := &lobby.Identity{UID: "uid-1", Email: "player@example.com", Provider: lobby.ProviderPassword}

	var issued *router.Cookie
	ctx := newPathCtx("/")
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		issued = c
		return c.Name == cfg.GetContextKey() && c.HTTPOnly && c.Value != ""
	})).Return().Once()

	require.NoError(t, boundary.Establish(ctx, identity))
	require.NotNil(t, issued)
	fromCtx, ok := lobby.IdentityFromContext(ctx.Context())
	require.True(t, ok)
	assert.Same(t, identity, fromCtx)
	assert.True(t, issued.Expires.After(time.Now()))
	assert.Equal(t, "Lax", issued.SameSite)

	next := newPathCtx("/slots")
	next.CookiesM[cfg.GetContextKey()] = issued.Value

	var seen, actor *lobby.Identity
	handler := boundary.Middleware()(func(c router.Context) error {
		seen = boundary.Identity(c)
		actor, _ = lobby.IdentityFromContext(c.Context())
		return nil
	})
	require.NoError(t, handler(next))
	require.NotNil(t, seen)
	assert.Equal(t, "uid-1", seen.UID)
	assert.Equal(t, lobby.ProviderPassword, seen.Provider)
	require.NotNil(t, actor)
	assert.Equal(t, "uid-1", actor.UID)
}

func TestSessionBoundaryClearDropsContextIdentity(t *testing.T) {
	cfg := newMockConfig()
	boundary := lobby.NewSessionBoundary(cfg, nil, nil, quietLogger{})

	ctx := newPathCtx("/")
	ctx.On("Cookie", mock.Anything).Return()
	require.NoError(t, boundary.Establish(ctx, &lobby.Identity{UID: "uid-1"}))

	boundary.Clear(ctx)

	_, ok := lobby.IdentityFromContext(ctx.Context())
	assert.False(t, ok)
	assert.Nil(t, boundary.Identity(ctx))
}

func TestSessionBoundaryMiddlewareIgnoresInvalidCookie(t *testing.T) {
	cfg := newMockConfig()
	boundary := lobby.NewSessionBoundary(cfg, nil, nil, quietLogger{})

	ctx := newPathCtx("/")
	ctx.CookiesM[cfg.GetContextKey()] = "not-a-token"
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == cfg.GetContextKey() && c.Value == ""
	})).Return().Once()

	called := false
	handler := boundary.Middleware()(func(c router.Context) error {
		called = true
		assert.Nil(t, boundary.Identity(c))
		return nil
	})

	require.NoError(t, handler(ctx))
	assert.True(t, called)
	ctx.AssertExpectations(t)
}

func TestSessionBoundaryAnonymousWithoutCookie(t *testing.T) {
	boundary := lobby.NewSessionBoundary(newMockConfig(), nil, nil, quietLogger{})
	ctx := newPathCtx("/")

	handler := boundary.Middleware()(func(c router.Context) error {
		assert.Nil(t, boundary.Current(c))
		return nil
	})
	require.NoError(t, handler(ctx))
	ctx.AssertNotCalled(t, "Cookie", mock.Anything)
}

func TestSessionBoundaryDefaultsToLoggingOrphanHandler(t *testing.T) {
	boundary := lobby.NewSessionBoundary(newMockConfig(), nil, nil, quietLogger{})
	require.NotNil(t, boundary.OrphanHandler())

	err := boundary.OrphanHandler().HandleOrphan(context.Background(), &lobby.Identity{UID: "uid-1"}, assert.AnError)
	assert.NoError(t, err)
}

func TestIdentityContext(t *testing.T) {
	_, ok := lobby.IdentityFromContext(context.Background())
	assert.False(t, ok)

	identity := &lobby.Identity{UID: "uid-2"}
	got, ok := lobby.IdentityFromContext(lobby.WithIdentityContext(context.Background(), identity))
	require.True(t, ok)
	assert.Same(t, identity, got)
}
