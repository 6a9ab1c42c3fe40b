package lobby

import (
	"context"
	"fmt"
	"strings"
)

// Logger is the logging contract used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ProviderKind identifies how an identity signs in
type ProviderKind string

const (
	ProviderPassword ProviderKind = "password"
	ProviderGoogle   ProviderKind = "google"
	ProviderFacebook ProviderKind = "facebook"
)

// SocialProviders lists the popup providers offered in the register modal.
var SocialProviders = []ProviderKind{ProviderGoogle, ProviderFacebook}

// ParseProviderKind resolves a route parameter into a social provider kind.
func ParseProviderKind(name string) (ProviderKind, bool) {
	kind := ProviderKind(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range SocialProviders {
		if k == kind {
			return k, true
		}
	}
	return "", false
}

// Identity is an account issued by the identity provider. It is referenced,
// never owned, by this package.
type Identity struct {
	UID           string       `json:"uid"`
	Email         string       `json:"email"`
	Provider      ProviderKind `json:"provider"`
	DisplayName   string       `json:"display_name,omitempty"`
	EmailVerified bool         `json:"email_verified,omitempty"`
	// IsNew is true when the provider created the identity during the
	// current attempt, false when an existing one signed in.
	IsNew bool `json:"-"`
}

func (i *Identity) String() string {
	if i == nil {
		return "<nil identity>"
	}
	return fmt.Sprintf("%s:%s <%s>", i.Provider, i.UID, i.Email)
}

// PopupGrant carries the result of a popup sign-in back to the server.
type PopupGrant struct {
	Code  string
	State string
}

// IdentityProvider is the identity SDK consumed by the flow controller.
// Failures should be reported as *ProviderError.
type IdentityProvider interface {
	CreateIdentityWithEmailPassword(ctx context.Context, email, password string) (*Identity, error)
	SignInWithPopup(ctx context.Context, kind ProviderKind, grant PopupGrant) (*Identity, error)
	DeleteIdentity(ctx context.Context, uid string) error
}

// RecordCreator creates the application user record for an identity.
// isNewRegistration separates sign-up from first-login record creation.
type RecordCreator interface {
	CreateUserRecord(ctx context.Context, identity *Identity, isNewRegistration bool) error
}

// RecordCreatorFunc adapts a function to RecordCreator.
type RecordCreatorFunc func(ctx context.Context, identity *Identity, isNewRegistration bool) error

// CreateUserRecord implements RecordCreator.
func (f RecordCreatorFunc) CreateUserRecord(ctx context.Context, identity *Identity, isNewRegistration bool) error {
	return f(ctx, identity, isNewRegistration)
}

// DefaultLogger returns the printf logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Printf("[DBG] LOBBY %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Printf("[INF] LOBBY %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Printf("[WRN] LOBBY %s%s\n", msg, formatArgs(args))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Printf("[ERR] LOBBY %s%s\n", msg, formatArgs(args))
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	return b.String()
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
