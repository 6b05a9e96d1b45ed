package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jharmon96/inkwell/internal/models"
)

// Token lifetimes. Access tokens are short-lived; refresh tokens let clients
// obtain a new access token without re-authenticating.
const (
	DefaultAccessTokenTTL  = 3 * time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token type claim values.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrTokenExpired is returned for structurally valid tokens past their expiry,
	// so callers can prompt for a refresh instead of a full re-authentication.
	ErrTokenExpired = errors.New("token: expired")
	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("token: invalid")
)

// TokenConfig bundles the configuration required to build a TokenService.
// The signing secret is process-wide configuration, loaded once at startup.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Clock      func() time.Time
}

// Claims represents the custom claims embedded in issued JWTs.
type Claims struct {
	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
	IsStaff   bool   `json:"stf,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair carries the two tokens returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService mints and verifies the signed session tokens. Tokens are
// self-contained: signature and expiry checks suffice, no store lookup.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService constructs a TokenService from the provided configuration.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: secret must be provided")
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}, nil
}

// Mint issues an access/refresh token pair bound to the given user.
func (s *TokenService) Mint(user *models.User) (TokenPair, error) {
	if user == nil || user.ID == "" {
		return TokenPair{}, errors.New("token: user is required")
	}

	access, err := s.sign(user, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := s.sign(user, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) sign(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()

	claims := &Claims{
		UserID:    user.ID,
		TokenType: tokenType,
		IsStaff:   user.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}

	return signed, nil
}

// Verify parses a signed token of the expected type and returns its claims.
// Expired tokens are reported distinctly from every other failure.
func (s *TokenService) Verify(tokenString, wantType string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrTokenInvalid
	}

	return &claims, nil
}
