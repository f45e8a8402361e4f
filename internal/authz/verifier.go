package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// TokenClaims are the verified claims the gateway needs from a bearer token.
type TokenClaims struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// TokenVerifier validates an opaque bearer token against an identity
// provider. Implementations must be stateless: verification never mutates
// local state beyond a possible call to the external provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*TokenClaims, error)
}

// OIDCVerifierConfig holds configuration for OIDC token verification.
type OIDCVerifierConfig struct {
	Issuer   string // provider discovery URL
	ClientID string // expected audience
}

// idTokenVerifier abstracts go-oidc's verifier for tests.
type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (claims map[string]any, err error)
}

// goOIDCVerifier wraps go-oidc's IDTokenVerifier.
type goOIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func (v *goOIDCVerifier) Verify(ctx context.Context, rawIDToken string) (map[string]any, error) {
	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}
	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	return claims, nil
}

// OIDCVerifier validates ID tokens issued by an OIDC provider.
type OIDCVerifier struct {
	verifier idTokenVerifier
}

// NewOIDCVerifier creates a verifier using OIDC discovery against the issuer.
// Discovery failure is a startup error, not an auth error.
func NewOIDCVerifier(ctx context.Context, cfg OIDCVerifierConfig) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", cfg.Issuer, err)
	}
	v := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return &OIDCVerifier{verifier: &goOIDCVerifier{verifier: v}}, nil
}

// NewTestOIDCVerifier creates a verifier with an injected token validator.
func NewTestOIDCVerifier(v idTokenVerifier) *OIDCVerifier {
	return &OIDCVerifier{verifier: v}
}

// Verify validates the raw ID token and extracts the claims the gateway
// needs. Provider unreachability surfaces as Unavailable; every token-level
// failure surfaces as InvalidToken.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := v.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, WrapError(KindUnavailable, err, "identity provider unreachable")
		}
		return nil, WrapError(KindInvalidToken, err, "token verification failed")
	}
	return claimsFromMap(claims)
}

// claimsFromMap converts a raw OIDC claims map to TokenClaims.
func claimsFromMap(claims map[string]any) (*TokenClaims, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, NewError(KindInvalidToken, "token missing sub claim")
	}
	email, _ := claims["email"].(string)
	verified, _ := claims["email_verified"].(bool)

	tc := &TokenClaims{
		SubjectID:     sub,
		Email:         email,
		EmailVerified: verified,
	}
	if iat, ok := numericClaim(claims["iat"]); ok {
		tc.IssuedAt = time.Unix(iat, 0)
	}
	if exp, ok := numericClaim(claims["exp"]); ok {
		tc.ExpiresAt = time.Unix(exp, 0)
	}
	return tc, nil
}

// numericClaim handles the JSON number representations OIDC libraries
// produce for timestamp claims.
func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
