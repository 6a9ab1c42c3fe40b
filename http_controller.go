package lobby

import (
	"context"
	"strings"

	"github.com/goliatone/go-lobby/forms"
	"github.com/goliatone/go-lobby/social"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controllers.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// PopupStarter opens social popups and reads back their state.
type PopupStarter interface {
	Begin(ctx context.Context, provider string, termsAccepted bool, returnTo string) (string, error)
	Peek(token string) (*social.OAuthState, error)
}

// AuthControllerRoutes holds the route paths.
type AuthControllerRoutes struct {
	Register       string
	Social         string
	SocialCallback string
	Logout         string
}

// AuthControllerViews holds the template names.
type AuthControllerViews struct {
	Home        string
	PopupResult string
}

// AuthController serves the register modal and the social popup.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Registrar    *Registrar
	Session      *SessionBoundary
	Shell        *Shell
	Popup        PopupStarter
	Activity     ActivitySink
	ErrorHandler router.ErrorHandler
}

// AuthControllerOption customizes an AuthController.
type AuthControllerOption func(*AuthController) *AuthController

// WithAuthRegistrar sets the registration flow controller.
func WithAuthRegistrar(r *Registrar) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Registrar = r
		return c
	}
}

// WithAuthSession sets the session boundary.
func WithAuthSession(s *SessionBoundary) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Session = s
		return c
	}
}

// WithAuthShell sets the layout shell.
func WithAuthShell(s *Shell) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Shell = s
		return c
	}
}

// WithAuthPopup enables the social routes.
func WithAuthPopup(p PopupStarter) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Popup = p
		return c
	}
}

// WithAuthLogger sets the logger.
func WithAuthLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// WithAuthActivitySink records sign outs.
func WithAuthActivitySink(sink ActivitySink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

// WithAuthDebug dumps form payloads.
func WithAuthDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// NewAuthController creates the controller. It panics without a
// Registrar or a SessionBoundary.
func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:   defLogger{},
		Activity: noopActivitySink{},
		Routes: &AuthControllerRoutes{
			Register:       "/auth/register",
			Social:         "/auth/social/:provider",
			SocialCallback: "/auth/social/:provider/callback",
			Logout:         "/auth/logout",
		},
		Views: &AuthControllerViews{
			Home:        "index",
			PopupResult: "auth/popup_result",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.Registrar == nil {
		panic("Missing Registrar in auth controller...")
	}
	if c.Session == nil {
		panic("Missing SessionBoundary in auth controller...")
	}
	if c.Shell == nil {
		c.Shell = NewShell(c.Session, nil, WithShellLogger(c.Logger))
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = c.Shell.ErrorHandler
	}

	return c
}

// RegisterRoutes mounts the auth routes.
func (a *AuthController) RegisterRoutes(r RouteRegistrar) {
	r.Get(a.Routes.Register, a.RegistrationShow)
	r.Post(a.Routes.Register, a.RegistrationCreate)
	r.Get(a.Routes.Logout, a.LogOut)
	if a.Popup != nil {
		r.Post(a.Routes.Social, a.SocialBegin)
		r.Get(a.Routes.SocialCallback, a.SocialCallback)
	}
}

// RegistrationShow opens the register modal over the home page.
func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return a.renderModal(ctx, forms.NewRegistrationForm(), "")
}

// RegistrationCreate runs an email registration attempt.
func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	form := forms.NewRegistrationForm()
	form.Bind(formSource(ctx))
	payload := forms.RegistrationFromState(form)

	if a.Debug {
		a.Logger.Debug("register modal submit", "payload", print.MaybePrettyJSON(map[string]any{
			"email":      payload.Email,
			"agreeTerms": payload.AgreeTerms,
		}))
	}

	attempt := a.Registrar.RegisterWithEmail(ctx.Context(), payload.Email, payload.Password, payload.AgreeTerms)
	if attempt.Succeeded() {
		if err := a.Session.Establish(ctx, attempt.Identity()); err != nil {
			return a.ErrorHandler(ctx, err)
		}
		return ctx.Redirect(returnPath(ctx.FormValue("redirect")), router.StatusSeeOther)
	}

	form.ApplyError(attempt.FieldError())
	form.Change(forms.FieldPassword, "")
	return a.renderModal(ctx, form, attempt.Message())
}

// SocialBegin checks the terms agreement and sends the popup to the
// provider. Nothing is opened when the terms are not accepted.
func (a *AuthController) SocialBegin(ctx router.Context) error {
	kind, ok := ParseProviderKind(ctx.Param("provider"))
	if !ok {
		return a.ErrorHandler(ctx, ErrUnknownProvider)
	}

	form := forms.NewRegistrationForm()
	form.Bind(formSource(ctx))
	terms := form.Checked(forms.FieldAgreeTerms)

	if fe := a.Registrar.CheckSocialTerms(terms); fe != nil {
		form.ApplyError(fe)
		return a.renderModal(ctx, form, "")
	}

	authURL, err := a.Popup.Begin(ctx.Context(), string(kind), terms, returnPath(ctx.FormValue("redirect")))
	if err != nil {
		a.Logger.Error("social popup could not start", "provider", kind, "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Redirect(authURL, router.StatusSeeOther)
}

// SocialCallback completes the popup and registers the identity. The
// popup window renders the result for its opener.
func (a *AuthController) SocialCallback(ctx router.Context) error {
	kind, ok := ParseProviderKind(ctx.Param("provider"))
	if !ok {
		return a.ErrorHandler(ctx, ErrUnknownProvider)
	}

	token := ctx.Query("state")
	terms, redirect := false, "/"
	if st, err := a.Popup.Peek(token); err == nil && st != nil {
		terms = st.TermsAccepted
		redirect = returnPath(st.ReturnTo)
	}

	attempt := a.Registrar.RegisterWithSocialProvider(ctx.Context(), kind, PopupGrant{
		Code:  ctx.Query("code"),
		State: token,
	}, terms)

	if attempt.Succeeded() {
		if err := a.Session.Establish(ctx, attempt.Identity()); err != nil {
			return a.ErrorHandler(ctx, err)
		}
	}

	message := attempt.Message()
	if fe := attempt.FieldError(); fe != nil {
		message = fe.Message
	}

	return ctx.Render(a.Views.PopupResult, router.ViewContext{
		"provider":  string(kind),
		"succeeded": attempt.Succeeded(),
		"message":   message,
		"redirect":  redirect,
	})
}

// LogOut clears the session.
func (a *AuthController) LogOut(ctx router.Context) error {
	if identity := a.Session.Identity(ctx); identity != nil {
		event := ActivityEvent{
			EventType: ActivityEventSignOut,
			Provider:  identity.Provider,
			UserID:    identity.UID,
			Email:     identity.Email,
		}
		if err := a.Activity.Record(ctx.Context(), event); err != nil {
			a.Logger.Warn("activity sink error", "event", event.EventType, "error", err)
		}
	}
	a.Session.Clear(ctx)
	return ctx.Redirect("/", router.StatusSeeOther)
}

func (a *AuthController) renderModal(ctx router.Context, form *forms.State, message string) error {
	return a.Shell.Render(ctx, a.Views.Home, router.ViewContext{
		"modal":        string(ModalRegister),
		"form":         form.View(),
		"flow_message": message,
	})
}

func returnPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}

// formSource reads submitted form fields by name.
func formSource(ctx router.Context) forms.FieldSource {
	return func(key string) string {
		return ctx.FormValue(key)
	}
}
