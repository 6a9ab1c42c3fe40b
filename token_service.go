package lobby

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService signs and validates session tokens.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a TokenService from cfg. Tokens default to a 24h
// lifetime.
func NewTokenService(cfg Config, logger Logger) *TokenService {
	ttl := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		ttl = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}
	return &TokenService{
		signingKey: []byte(cfg.GetSigningKey()),
		ttl:        ttl,
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		logger:     normalizeLogger(logger),
		now:        time.Now,
	}
}

// TTL returns the token lifetime.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Mint signs a session token for identity.
func (ts *TokenService) Mint(identity *Identity) (string, time.Time, error) {
	if identity == nil || identity.UID == "" {
		return "", time.Time{}, errors.New("identity must have a uid", errors.CategoryInternal)
	}

	now := ts.now()
	expires := now.Add(ts.ttl)
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.UID,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UID:           identity.UID,
		Email:         identity.Email,
		Provider:      identity.Provider,
		DisplayName:   identity.DisplayName,
		EmailVerified: identity.EmailVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}
	return signed, expires, nil
}

// Validate parses and validates a session token.
func (ts *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(ts.now))
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("session token uses unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)
	if err != nil {
		return nil, errors.Wrap(err, ErrSessionInvalid.Category, ErrSessionInvalid.Message).
			WithTextCode(ErrSessionInvalid.TextCode).
			WithCode(ErrSessionInvalid.Code)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}
