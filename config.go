package lobby

// Config holds the session settings consumed by the package.
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	// GetTokenExpiration is expressed in hours.
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetCookieSecure() bool
}
