package sidebar

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

// DefaultCookieName stores the expanded flag between requests.
const DefaultCookieName = "lobby_sidebar"

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// Config configures the sidebar controller.
type Config struct {
	// CookieName for the expanded flag (default: DefaultCookieName)
	CookieName string

	// CookieSecure sets the Secure flag on cookies
	CookieSecure bool

	// Groups rendered by the sidebar (default: DefaultGroups())
	Groups []Group

	// Authenticated reports whether the request carries a session
	Authenticated func(ctx router.Context) bool
}

// Controller serves the sidebar toggle and navigation endpoints.
type Controller struct {
	config Config
}

// NewController creates a sidebar controller.
func NewController(cfg Config) *Controller {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = DefaultGroups()
	}
	if cfg.Authenticated == nil {
		cfg.Authenticated = func(router.Context) bool { return false }
	}
	return &Controller{config: cfg}
}

// RegisterRoutes registers the sidebar routes.
func (c *Controller) RegisterRoutes(group RouteRegistrar) {
	group.Post("/sidebar/toggle", c.Toggle)
	group.Get("/sidebar/go", c.Navigate)
}

// Expanded reads the expanded flag. The sidebar starts collapsed.
func (c *Controller) Expanded(ctx router.Context) bool {
	return ctx.Cookies(c.config.CookieName) == "1"
}

// View presents the sidebar for the current request.
func (c *Controller) View(ctx router.Context, path string) View {
	return Present(c.config.Groups, State{
		Expanded:      c.Expanded(ctx),
		Path:          path,
		Authenticated: c.config.Authenticated(ctx),
		Hovered:       ctx.Query("hover"),
	})
}

// Toggle flips the expanded flag and returns to the page it came from.
func (c *Controller) Toggle(ctx router.Context) error {
	expanded := !c.Expanded(ctx)
	c.setExpanded(ctx, expanded)
	return ctx.Redirect(localRedirect(ctx.FormValue("redirect")), http.StatusSeeOther)
}

// Navigate follows an entry. Disabled entries keep the visitor on the
// page they came from; on narrow viewports navigating collapses the
// sidebar.
func (c *Controller) Navigate(ctx router.Context) error {
	item, ok := Find(c.config.Groups, ctx.Query("href"))
	if !ok {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "unknown navigation entry",
		})
	}

	entry := presentEntry(item, State{
		Expanded:      c.Expanded(ctx),
		Authenticated: c.config.Authenticated(ctx),
	}, "", "")

	if entry.Disabled {
		return ctx.Redirect(localRedirect(ctx.Query("from")), http.StatusSeeOther)
	}

	width, _ := strconv.Atoi(ctx.Query("vw"))
	if ShouldCollapseOnNavigate(entry, width) {
		c.setExpanded(ctx, false)
	}

	return ctx.Redirect(entry.Target, http.StatusSeeOther)
}

func (c *Controller) setExpanded(ctx router.Context, expanded bool) {
	value := "0"
	if expanded {
		value = "1"
	}
	ctx.Cookie(&router.Cookie{
		Name:     c.config.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		HTTPOnly: true,
		Secure:   c.config.CookieSecure,
		SameSite: "Lax",
	})
}

func localRedirect(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}
