package lobby

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of the session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID           string       `json:"uid,omitempty"`
	Email         string       `json:"email,omitempty"`
	Provider      ProviderKind `json:"provider,omitempty"`
	DisplayName   string       `json:"name,omitempty"`
	EmailVerified bool         `json:"email_verified,omitempty"`
}

// UserID returns the identity UID, falling back to the subject.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// Identity rebuilds the identity referenced by the session.
func (c *SessionClaims) Identity() *Identity {
	return &Identity{
		UID:           c.UserID(),
		Email:         c.Email,
		Provider:      c.Provider,
		DisplayName:   c.DisplayName,
		EmailVerified: c.EmailVerified,
	}
}
