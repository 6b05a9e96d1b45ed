package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// GoogleIssuer is the OpenID Connect issuer for Google accounts.
const GoogleIssuer = "https://accounts.google.com"

var (
	// ErrInvalidToken signals that the provider rejected the access token.
	ErrInvalidToken = errors.New("oauth: invalid access token")
	// ErrNoEmail signals that the provider's identity payload lacks a usable email.
	ErrNoEmail = errors.New("oauth: identity has no verified email")
	// ErrProviderUnavailable signals a transport failure talking to the provider.
	// Unlike rejections, these are retryable by the caller.
	ErrProviderUnavailable = errors.New("oauth: provider unavailable")
)

// ExternalIdentity is the transient result of verifying a third-party access
// token. It is consumed immediately by the reconciler and never persisted.
type ExternalIdentity struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// IdentityVerifier exchanges a third-party access token for a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, accessToken string) (*ExternalIdentity, error)
}

// GoogleVerifierOptions configures the Google verifier.
type GoogleVerifierOptions struct {
	// IssuerURL overrides the discovery issuer, used in tests.
	IssuerURL  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// GoogleVerifier resolves Google access tokens to identities via the
// provider's UserInfo endpoint. Discovery runs once on first use and the
// provider handle is reused across requests.
type GoogleVerifier struct {
	issuerURL  string
	httpClient *http.Client
	timeout    time.Duration

	mu       sync.Mutex
	provider *oidc.Provider
}

// NewGoogleVerifier constructs a GoogleVerifier.
func NewGoogleVerifier(opts GoogleVerifierOptions) *GoogleVerifier {
	issuer := strings.TrimSpace(opts.IssuerURL)
	if issuer == "" {
		issuer = GoogleIssuer
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GoogleVerifier{
		issuerURL:  issuer,
		httpClient: opts.HTTPClient,
		timeout:    timeout,
	}
}

// Verify exchanges the access token for the holder's identity. The token is
// only ever forwarded to the provider, never stored.
func (v *GoogleVerifier) Verify(ctx context.Context, accessToken string) (*ExternalIdentity, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	if v.httpClient != nil {
		ctx = oidc.ClientContext(ctx, v.httpClient)
	}

	provider, err := v.discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: discovery failed: %v", ErrProviderUnavailable, err)
	}

	userInfo, err := provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		if isTransportError(err) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err := userInfo.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrInvalidToken, err)
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return nil, ErrNoEmail
	}

	return &ExternalIdentity{
		Subject:    userInfo.Subject,
		Email:      email,
		GivenName:  strings.TrimSpace(claims.GivenName),
		FamilyName: strings.TrimSpace(claims.FamilyName),
	}, nil
}

func (v *GoogleVerifier) discover(ctx context.Context) (*oidc.Provider, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.provider != nil {
		return v.provider, nil
	}

	provider, err := oidc.NewProvider(ctx, v.issuerURL)
	if err != nil {
		return nil, err
	}

	v.provider = provider
	return provider, nil
}

// isTransportError separates communication failures (retryable) from provider
// rejections (not retryable).
func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
