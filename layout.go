package lobby

import (
	"strings"

	"github.com/goliatone/go-lobby/sidebar"
	"github.com/goliatone/go-router"
)

// Modal identifies the overlay opened on top of the current page.
type Modal string

const (
	ModalNone     Modal = ""
	ModalRegister Modal = "register"
	ModalLogin    Modal = "login"
)

// ParseModal resolves the ?modal= query value.
func ParseModal(raw string) Modal {
	switch Modal(strings.ToLower(strings.TrimSpace(raw))) {
	case ModalRegister:
		return ModalRegister
	case ModalLogin:
		return ModalLogin
	}
	return ModalNone
}

// ShellViews names the templates rendered by the shell.
type ShellViews struct {
	Home  string
	Error string
}

// Shell wraps every page with the sidebar, the current identity and the
// auth modal. It is mounted once at the application root.
type Shell struct {
	session *SessionBoundary
	sidebar *sidebar.Controller
	views   ShellViews
	csrfKey string
	logger  Logger
}

// ShellOption customizes a Shell.
type ShellOption func(*Shell)

// WithShellViews overrides the template names.
func WithShellViews(views ShellViews) ShellOption {
	return func(s *Shell) {
		if views.Home != "" {
			s.views.Home = views.Home
		}
		if views.Error != "" {
			s.views.Error = views.Error
		}
	}
}

// WithCSRFLocalsKey exposes the CSRF token found under key as csrf_token.
func WithCSRFLocalsKey(key string) ShellOption {
	return func(s *Shell) {
		s.csrfKey = key
	}
}

// WithShellLogger sets the logger.
func WithShellLogger(logger Logger) ShellOption {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewShell creates the layout shell.
func NewShell(session *SessionBoundary, nav *sidebar.Controller, opts ...ShellOption) *Shell {
	s := &Shell{
		session: session,
		sidebar: nav,
		views: ShellViews{
			Home:  "index",
			Error: "errors/500",
		},
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.sidebar == nil {
		s.sidebar = sidebar.NewController(sidebar.Config{
			Authenticated: s.Authenticated,
		})
	}
	return s
}

// Sidebar returns the sidebar controller used by the shell.
func (s *Shell) Sidebar() *sidebar.Controller {
	return s.sidebar
}

// Authenticated reports whether the request carries a session.
func (s *Shell) Authenticated(ctx router.Context) bool {
	return s.identity(ctx) != nil
}

func (s *Shell) identity(ctx router.Context) *Identity {
	if s.session == nil {
		return nil
	}
	return s.session.Identity(ctx)
}

// Mount registers the root page and the sidebar routes.
func (s *Shell) Mount(r RouteRegistrar) {
	r.Get("/", s.Home)
	s.sidebar.RegisterRoutes(r)
}

// Home renders the landing page.
func (s *Shell) Home(ctx router.Context) error {
	return s.Render(ctx, s.views.Home, nil)
}

// ViewContext builds the layout data for the current request and merges
// page data on top of it.
func (s *Shell) ViewContext(ctx router.Context, page router.ViewContext) router.ViewContext {
	path := ctx.Path()
	identity := s.identity(ctx)
	modal := ParseModal(ctx.Query("modal"))
	if identity != nil && modal != ModalNone {
		modal = ModalNone
	}

	providers := make([]string, 0, len(SocialProviders))
	for _, p := range SocialProviders {
		providers = append(providers, string(p))
	}

	vc := router.ViewContext{
		"path":             path,
		"sidebar":          s.sidebar.View(ctx, path),
		"identity":         identity,
		"authenticated":    identity != nil,
		"modal":            string(modal),
		"social_providers": providers,
		"flow_message":     "",
	}
	if s.csrfKey != "" {
		if token, ok := ctx.Locals(s.csrfKey).(string); ok {
			vc["csrf_token"] = token
		}
	}

	for k, v := range page {
		vc[k] = v
	}
	return vc
}

// Render renders view inside the shell.
func (s *Shell) Render(ctx router.Context, view string, page router.ViewContext) error {
	return ctx.Render(view, s.ViewContext(ctx, page))
}

// ErrorHandler renders the error page with the rich error details.
func (s *Shell) ErrorHandler(ctx router.Context, err error) error {
	s.logger.Error("request failed", "path", ctx.Path(), "error", err)
	return ctx.Status(statusFor(err)).Render(s.views.Error, s.ViewContext(ctx, router.ViewContext{
		"message": err.Error(),
		"code":    TextCode(err),
	}))
}
