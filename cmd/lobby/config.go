package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/uptrace/bun/driver/sqliteshim"
	"gopkg.in/yaml.v3"
)

// AppConfig is the lobby server configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
	Firebase FirebaseConfig `yaml:"firebase"`
	Social   SocialConfig   `yaml:"social"`
	Backend  BackendConfig  `yaml:"backend"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Orphans  OrphanConfig   `yaml:"orphans"`
	Verify   VerifyConfig   `yaml:"verify"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"base_url"`
	Debug   bool   `yaml:"debug"`
}

// SessionConfig implements lobby.Config.
type SessionConfig struct {
	SigningKey      string   `yaml:"signing_key"`
	ContextKey      string   `yaml:"context_key"`
	TokenExpiration int      `yaml:"token_expiration"`
	Issuer          string   `yaml:"issuer"`
	Audience        []string `yaml:"audience"`
	CookieSecure    bool     `yaml:"cookie_secure"`
}

func (s SessionConfig) GetSigningKey() string   { return s.SigningKey }
func (s SessionConfig) GetContextKey() string   { return s.ContextKey }
func (s SessionConfig) GetTokenExpiration() int { return s.TokenExpiration }
func (s SessionConfig) GetIssuer() string       { return s.Issuer }
func (s SessionConfig) GetAudience() []string   { return s.Audience }
func (s SessionConfig) GetCookieSecure() bool   { return s.CookieSecure }

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type SocialConfig struct {
	StateSecret string         `yaml:"state_secret"`
	StateTTL    time.Duration  `yaml:"state_ttl"`
	Google      GoogleConfig   `yaml:"google"`
	Facebook    FacebookConfig `yaml:"facebook"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type FacebookConfig struct {
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`
}

// BackendConfig points at the user-record API. Records are kept in the
// local database when BaseURL is empty.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig implements the go-persistence-bun client config.
type DatabaseConfig struct {
	DSN         string        `yaml:"dsn"`
	Debug       bool          `yaml:"debug"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
}

func (d DatabaseConfig) GetDebug() bool                { return d.Debug }
func (d DatabaseConfig) GetDriver() string             { return sqliteshim.ShimName }
func (d DatabaseConfig) GetServer() string             { return d.DSN }
func (d DatabaseConfig) GetPingTimeout() time.Duration { return d.PingTimeout }
func (d DatabaseConfig) GetOtelIdentifier() string     { return "" }

// RedisConfig enables the shared orphan ledger when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// OrphanConfig selects the compensating handlers run, in order, when a
// record cannot be created for a new identity.
type OrphanConfig struct {
	Policies     []string      `yaml:"policies"`
	ReapInterval time.Duration `yaml:"reap_interval"`
	ReapBatch    int           `yaml:"reap_batch"`
	ResolvedTTL  time.Duration `yaml:"resolved_ttl"`
}

type VerifyConfig struct {
	PhoneRegion string `yaml:"phone_region"`
}

// Orphan policy names.
const (
	PolicyDelete = "delete"
	PolicyRetry  = "retry"
	PolicyMark   = "mark"
	PolicyLog    = "log"
)

// DefaultConfig returns the development defaults.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:    ":8572",
			BaseURL: "http://localhost:8572",
		},
		Session: SessionConfig{
			ContextKey:      "lobby_session",
			TokenExpiration: 24,
			Issuer:          "lobby",
			Audience:        []string{"lobby:web"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Social: SocialConfig{
			StateTTL: 10 * time.Minute,
		},
		Backend: BackendConfig{
			Timeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:         "file:lobby.db?cache=shared",
			PingTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Prefix: "lobby:orphans",
		},
		Orphans: OrphanConfig{
			Policies:     []string{PolicyDelete},
			ReapInterval: 5 * time.Minute,
			ReapBatch:    50,
			ResolvedTTL:  7 * 24 * time.Hour,
		},
		Verify: VerifyConfig{
			PhoneRegion: "US",
		},
	}
}

// LoadConfig reads path over the defaults, applies LOBBY_* environment
// overrides and validates the result. An empty path skips the file.
func LoadConfig(path string, env func(string) string) (*AppConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if env == nil {
		env = os.Getenv
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv(env func(string) string) error {
	strs := map[string]*string{
		"LOBBY_ADDR":                      &c.Server.Addr,
		"LOBBY_BASE_URL":                  &c.Server.BaseURL,
		"LOBBY_LOG_LEVEL":                 &c.Log.Level,
		"LOBBY_SESSION_SIGNING_KEY":       &c.Session.SigningKey,
		"LOBBY_FIREBASE_PROJECT_ID":       &c.Firebase.ProjectID,
		"LOBBY_FIREBASE_CREDENTIALS_FILE": &c.Firebase.CredentialsFile,
		"LOBBY_SOCIAL_STATE_SECRET":       &c.Social.StateSecret,
		"LOBBY_GOOGLE_CLIENT_ID":          &c.Social.Google.ClientID,
		"LOBBY_GOOGLE_CLIENT_SECRET":      &c.Social.Google.ClientSecret,
		"LOBBY_FACEBOOK_APP_ID":           &c.Social.Facebook.AppID,
		"LOBBY_FACEBOOK_APP_SECRET":       &c.Social.Facebook.AppSecret,
		"LOBBY_BACKEND_URL":               &c.Backend.BaseURL,
		"LOBBY_BACKEND_API_KEY":           &c.Backend.APIKey,
		"LOBBY_DATABASE_DSN":              &c.Database.DSN,
		"LOBBY_REDIS_ADDR":                &c.Redis.Addr,
		"LOBBY_REDIS_PASSWORD":            &c.Redis.Password,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(env(key)); v != "" {
			*dst = v
		}
	}

	if v := strings.TrimSpace(env("LOBBY_COOKIE_SECURE")); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: LOBBY_COOKIE_SECURE: %w", err)
		}
		c.Session.CookieSecure = secure
	}

	if v := strings.TrimSpace(env("LOBBY_ORPHAN_POLICIES")); v != "" {
		c.Orphans.Policies = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Orphans.Policies = append(c.Orphans.Policies, strings.ToLower(p))
			}
		}
	}
	return nil
}

// Validate checks the configuration.
func (c *AppConfig) Validate() error {
	return validation.Errors{
		"server": validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Addr, validation.Required),
			validation.Field(&c.Server.BaseURL, validation.Required, is.URL),
		),
		"session": validation.ValidateStruct(&c.Session,
			validation.Field(&c.Session.SigningKey, validation.Required, validation.Length(16, 0)),
			validation.Field(&c.Session.ContextKey, validation.Required),
			validation.Field(&c.Session.TokenExpiration, validation.Min(1)),
		),
		"log": validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.In("trace", "debug", "info", "warn", "warning", "error")),
			validation.Field(&c.Log.Format, validation.In("json", "text")),
		),
		"social": validation.ValidateStruct(&c.Social,
			validation.Field(&c.Social.StateSecret, validation.Required, validation.Length(16, 0)),
			validation.Field(&c.Social.StateTTL, validation.Min(time.Minute)),
		),
		"backend": validation.ValidateStruct(&c.Backend,
			validation.Field(&c.Backend.BaseURL, is.URL),
		),
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.DSN, validation.Required),
		),
		"orphans": validation.ValidateStruct(&c.Orphans,
			validation.Field(&c.Orphans.Policies, validation.Required, validation.By(knownPolicies)),
			validation.Field(&c.Orphans.ReapBatch, validation.Min(1)),
		),
	}.Filter()
}

// knownPolicies also requires retry to run before delete and mark: once a
// retry creates the record the chain stops, but a delete or mark that ran
// first would leave a record for a removed identity.
func knownPolicies(value interface{}) error {
	policies, _ := value.([]string)
	destructive := ""
	for _, p := range policies {
		switch p {
		case PolicyDelete, PolicyMark:
			if destructive == "" {
				destructive = p
			}
		case PolicyRetry:
			if destructive != "" {
				return fmt.Errorf("orphan policy %q must come before %q", PolicyRetry, destructive)
			}
		case PolicyLog:
		default:
			return fmt.Errorf("unknown orphan policy %q", p)
		}
	}
	return nil
}
