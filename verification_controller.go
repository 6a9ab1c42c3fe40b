package lobby

import (
	"context"
	"strings"

	"github.com/goliatone/go-lobby/forms"
	"github.com/goliatone/go-router"
)

// VerificationSink receives the packaged values of a verification step.
type VerificationSink interface {
	SubmitVerification(ctx context.Context, identity *Identity, step string, values map[string]string) error
}

// VerificationController serves the multi-step settings verification.
type VerificationController struct {
	Logger       Logger
	Session      *SessionBoundary
	Shell        *Shell
	Sink         VerificationSink
	Steps        forms.Steps
	PhoneRegion  string
	BasePath     string
	ViewPrefix   string
	DoneRedirect string
	ErrorHandler router.ErrorHandler
}

// VerificationOption customizes a VerificationController.
type VerificationOption func(*VerificationController) *VerificationController

// WithVerificationSink sets where submitted steps go.
func WithVerificationSink(sink VerificationSink) VerificationOption {
	return func(c *VerificationController) *VerificationController {
		c.Sink = sink
		return c
	}
}

// WithVerificationSteps overrides the step order.
func WithVerificationSteps(steps forms.Steps) VerificationOption {
	return func(c *VerificationController) *VerificationController {
		if len(steps) > 0 {
			c.Steps = steps
		}
		return c
	}
}

// WithPhoneRegion sets the region used to parse local phone numbers.
func WithPhoneRegion(region string) VerificationOption {
	return func(c *VerificationController) *VerificationController {
		c.PhoneRegion = region
		return c
	}
}

// WithVerificationLogger sets the logger.
func WithVerificationLogger(l Logger) VerificationOption {
	return func(c *VerificationController) *VerificationController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// NewVerificationController creates the controller on top of shell.
func NewVerificationController(session *SessionBoundary, shell *Shell, opts ...VerificationOption) *VerificationController {
	c := &VerificationController{
		Logger:       defLogger{},
		Session:      session,
		Shell:        shell,
		Steps:        forms.DefaultVerifySteps,
		PhoneRegion:  forms.DefaultPhoneRegion,
		BasePath:     "/settings/verify",
		ViewPrefix:   "settings/verify_",
		DoneRedirect: "/",
	}
	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}
	if c.Shell == nil {
		c.Shell = NewShell(session, nil, WithShellLogger(c.Logger))
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = c.Shell.ErrorHandler
	}
	return c
}

// RegisterRoutes mounts the verification routes.
func (v *VerificationController) RegisterRoutes(r RouteRegistrar) {
	r.Get(v.BasePath, v.Start)
	r.Get(v.BasePath+"/:step", v.Show)
	r.Post(v.BasePath+"/:step", v.Submit)
}

// Start redirects to the first step.
func (v *VerificationController) Start(ctx router.Context) error {
	return ctx.Redirect(v.stepPath(v.Steps.First()), router.StatusSeeOther)
}

// Show renders an empty step form.
func (v *VerificationController) Show(ctx router.Context) error {
	if v.Session.Identity(ctx) == nil {
		return v.signIn(ctx)
	}

	step := strings.ToLower(ctx.Param("step"))
	form, ok := v.form(step)
	if !ok {
		return v.ErrorHandler(ctx, ErrUnknownStep)
	}
	return v.render(ctx, step, form, "")
}

// Submit validates the step and hands its values to the sink. A "back"
// action returns to the previous step without submitting.
func (v *VerificationController) Submit(ctx router.Context) error {
	identity := v.Session.Identity(ctx)
	if identity == nil {
		return v.signIn(ctx)
	}

	step := strings.ToLower(ctx.Param("step"))
	form, ok := v.form(step)
	if !ok {
		return v.ErrorHandler(ctx, ErrUnknownStep)
	}

	if ctx.FormValue("action") == "back" {
		prev, ok := v.Steps.Previous(step)
		if !ok {
			prev = step
		}
		return ctx.Redirect(v.stepPath(prev), router.StatusSeeOther)
	}

	form.Bind(formSource(ctx))

	if step == forms.StepPersonal && !forms.ValidatePersonal(form, v.PhoneRegion) {
		return v.render(ctx, step, form, "")
	}

	err := form.Submit(func(values map[string]string) error {
		if v.Sink == nil {
			return ErrProviderNotConfigured
		}
		return v.Sink.SubmitVerification(ctx.Context(), identity, step, values)
	})
	if err != nil {
		v.Logger.Error("verification step rejected", "step", step, "uid", identity.UID, "error", err)
		return v.render(ctx, step, form, MsgVerificationFailed)
	}

	if next, ok := v.Steps.Next(step); ok {
		return ctx.Redirect(v.stepPath(next), router.StatusSeeOther)
	}
	return ctx.Redirect(v.DoneRedirect, router.StatusSeeOther)
}

func (v *VerificationController) form(step string) (*forms.State, bool) {
	if !v.Steps.Has(step) {
		return nil, false
	}
	return forms.NewStepForm(step)
}

func (v *VerificationController) render(ctx router.Context, step string, form *forms.State, message string) error {
	prev, hasPrev := v.Steps.Previous(step)
	return v.Shell.Render(ctx, v.ViewPrefix+step, router.ViewContext{
		"step":         step,
		"steps":        []string(v.Steps),
		"action":       v.stepPath(step),
		"previous":     prev,
		"has_previous": hasPrev,
		"last":         v.Steps.Last(step),
		"form":         form.View(),
		"flow_message": message,
	})
}

func (v *VerificationController) signIn(ctx router.Context) error {
	return ctx.Redirect("/?modal="+string(ModalRegister), router.StatusSeeOther)
}

func (v *VerificationController) stepPath(step string) string {
	return v.BasePath + "/" + step
}
