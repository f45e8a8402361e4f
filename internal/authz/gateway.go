package authz

import (
	"context"
	"log/slog"
	"time"
)

// Gateway is the request-path orchestrator: it verifies the bearer token,
// applies the super-admin policy or falls through to the tenant directory
// (through the identity cache), and hands back the resolved identity the
// HTTP layer attaches to the request context.
//
// A Gateway owns its cache and dependency handles explicitly; there is no
// package-level state.
type Gateway struct {
	verifier    TokenVerifier
	policy      *SuperAdminPolicy
	directory   *Directory
	cache       *IdentityCache
	callTimeout time.Duration

	now func() time.Time // injectable clock for tests
}

// NewGateway wires the gateway from its collaborators. callTimeout bounds
// every verifier and directory call so a stalled external dependency cannot
// hang a request indefinitely.
func NewGateway(verifier TokenVerifier, policy *SuperAdminPolicy, directory *Directory, cache *IdentityCache, callTimeout time.Duration) *Gateway {
	return &Gateway{
		verifier:    verifier,
		policy:      policy,
		directory:   directory,
		cache:       cache,
		callTimeout: callTimeout,
		now:         time.Now,
	}
}

// Cache exposes the identity cache for the operator surface
// (invalidation and stats endpoints).
func (g *Gateway) Cache() *IdentityCache {
	return g.cache
}

// Authenticate walks a request from bearer token to resolved identity.
// Every failure is an *Error whose kind decides the client-facing status;
// rejections short-circuit before any handler executes.
func (g *Gateway) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, NewError(KindMissingToken, "authentication token not provided")
	}

	vctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	claims, err := g.verifier.Verify(vctx, token)
	cancel()
	if err != nil {
		return nil, err
	}

	// Expiry is re-checked against our own clock regardless of the
	// verifier's outcome, guarding against clock skew and provider-side
	// verification gaps.
	if !claims.ExpiresAt.After(g.now()) {
		return nil, NewError(KindInvalidToken, "token expired")
	}

	identity, err := g.cache.GetOrResolve(ctx, claims.SubjectID, func(ctx context.Context) (*Identity, error) {
		return g.resolve(ctx, claims)
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("identity resolved",
		"subject", identity.SubjectID,
		"tenant", identity.TenantID,
		"scope", identity.PrimaryScope,
		"super_admin", identity.SuperAdmin,
	)
	return identity, nil
}

// resolve produces a fresh identity on a cache miss. The directory call is
// detached from the request's cancellation: an abandoned resolution that
// completes may still populate the cache for other callers.
func (g *Gateway) resolve(ctx context.Context, claims *TokenClaims) (*Identity, error) {
	if g.policy.IsSuperAdmin(claims.Email) {
		return g.policy.Elevate(claims), nil
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.callTimeout)
	defer cancel()
	return g.directory.Resolve(dctx, claims)
}
