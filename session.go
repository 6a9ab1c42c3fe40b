package lobby

import (
	"context"
	"time"

	"github.com/goliatone/go-router"
)

// DefaultSessionLocalsKey is where the middleware stores the *Session.
const DefaultSessionLocalsKey = "lobby_session"

// Session is the request scoped view of the signed in identity.
type Session struct {
	Identity *Identity
	Claims   *SessionClaims
}

// Authenticated reports whether the session carries an identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.Identity != nil && s.Identity.UID != ""
}

// SessionBoundary exposes the current identity and the orphan handler to
// handlers. The auth controller is its only writer, through Establish and
// Clear; everything else reads.
type SessionBoundary struct {
	cfg       Config
	tokens    *TokenService
	orphans   OrphanHandler
	logger    Logger
	localsKey string
	now       func() time.Time
}

// NewSessionBoundary builds a boundary. A nil orphan handler only logs.
func NewSessionBoundary(cfg Config, tokens *TokenService, orphans OrphanHandler, logger Logger) *SessionBoundary {
	logger = normalizeLogger(logger)
	if tokens == nil {
		tokens = NewTokenService(cfg, logger)
	}
	if orphans == nil {
		orphans = LogOrphan(logger)
	}
	return &SessionBoundary{
		cfg:       cfg,
		tokens:    tokens,
		orphans:   orphans,
		logger:    logger,
		localsKey: DefaultSessionLocalsKey,
		now:       time.Now,
	}
}

// OrphanHandler returns the compensating handler shared with the flow.
func (b *SessionBoundary) OrphanHandler() OrphanHandler {
	return b.orphans
}

// Middleware decodes the session cookie into request locals. Requests
// with a missing or invalid cookie continue without a session.
func (b *SessionBoundary) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := ctx.Cookies(b.cfg.GetContextKey())
			if raw == "" {
				return next(ctx)
			}

			claims, err := b.tokens.Validate(raw)
			if err != nil {
				b.logger.Debug("ignoring invalid session cookie", "error", err)
				b.deleteCookie(ctx)
				return next(ctx)
			}

			identity := claims.Identity()
			ctx.Locals(b.localsKey, &Session{
				Identity: identity,
				Claims:   claims,
			})
			ctx.SetContext(WithIdentityContext(ctx.Context(), identity))
			return next(ctx)
		}
	}
}

// Current returns the session stored by Middleware or Establish.
func (b *SessionBoundary) Current(ctx router.Context) *Session {
	raw := ctx.Locals(b.localsKey)
	if raw == nil {
		return nil
	}
	session, _ := raw.(*Session)
	return session
}

// Identity returns the signed in identity, nil when anonymous.
func (b *SessionBoundary) Identity(ctx router.Context) *Identity {
	if s := b.Current(ctx); s.Authenticated() {
		return s.Identity
	}
	return nil
}

// Establish signs identity into the session cookie and the current
// request.
func (b *SessionBoundary) Establish(ctx router.Context, identity *Identity) error {
	token, expires, err := b.tokens.Mint(identity)
	if err != nil {
		return err
	}

	ctx.Cookie(&router.Cookie{
		Name:     b.cfg.GetContextKey(),
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   b.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})

	ctx.Locals(b.localsKey, &Session{Identity: identity})
	ctx.SetContext(WithIdentityContext(ctx.Context(), identity))
	b.logger.Info("session established", "identity", identity.String())
	return nil
}

// Clear signs the current identity out.
func (b *SessionBoundary) Clear(ctx router.Context) {
	b.deleteCookie(ctx)
	ctx.Locals(b.localsKey, &Session{})
	ctx.SetContext(WithIdentityContext(ctx.Context(), nil))
}

func (b *SessionBoundary) deleteCookie(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     b.cfg.GetContextKey(),
		Value:    "",
		Expires:  b.now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   b.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentityContext sets the identity in the given context. The session
// middleware does this for every signed in request, so collaborators called
// with ctx.Context() can find the acting identity.
func WithIdentityContext(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity in the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*Identity)
	return raw, ok && raw != nil
}
