package authz

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifierConfig holds configuration for stateless JWT verification.
type JWTVerifierConfig struct {
	SigningKey string // raw HMAC secret string OR path to PEM public key file
	Issuer     string // expected "iss" claim (empty = don't verify)
	Audience   string // expected "aud" claim (empty = don't verify)
}

// JWTVerifier validates signed JWTs without calling an external provider.
// Used when the identity provider issues verifiable tokens directly.
type JWTVerifier struct {
	parserOpts []jwt.ParserOption
	keyFunc    jwt.Keyfunc
}

// NewJWTVerifier creates a JWT verifier with auto-detected key type.
// If SigningKey is a path to a PEM file, an RSA or ECDSA public key is used;
// otherwise the raw string is treated as an HMAC-SHA256 secret.
func NewJWTVerifier(cfg JWTVerifierConfig) (*JWTVerifier, error) {
	if cfg.SigningKey == "" {
		return nil, errors.New("jwt signing key is required")
	}

	signingKey, validMethods, err := parseSigningKey(cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}

	keyFunc := func(token *jwt.Token) (any, error) {
		method := token.Method.Alg()
		for _, m := range validMethods {
			if method == m {
				return signingKey, nil
			}
		}
		return nil, fmt.Errorf("unexpected signing method: %s", method)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}

	return &JWTVerifier{parserOpts: parserOpts, keyFunc: keyFunc}, nil
}

// parseSigningKey auto-detects the key type from the input.
// Returns the parsed key and the list of valid signing methods.
func parseSigningKey(input string) (any, []string, error) {
	info, err := os.Stat(input)
	if err == nil && !info.IsDir() {
		pemBytes, err := os.ReadFile(input)
		if err != nil {
			return nil, nil, fmt.Errorf("read PEM file: %w", err)
		}
		if key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes); err == nil {
			return key, []string{"RS256", "RS384", "RS512"}, nil
		}
		if key, err := jwt.ParseECPublicKeyFromPEM(pemBytes); err == nil {
			return key, []string{"ES256", "ES384", "ES512"}, nil
		}
		return nil, nil, errors.New("PEM file contains no recognized RSA or ECDSA public key")
	}

	// Treat as HMAC secret.
	return []byte(input), []string{"HS256", "HS384", "HS512"}, nil
}

// Verify parses and verifies the token, returning extracted claims. All
// parse and signature failures surface as InvalidToken; JWT verification is
// local so there is no Unavailable path.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*TokenClaims, error) {
	parsed, err := jwt.Parse(token, v.keyFunc, v.parserOpts...)
	if err != nil {
		return nil, WrapError(KindInvalidToken, err, "token verification failed")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, NewError(KindInvalidToken, "unexpected claims type")
	}

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
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		tc.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	return tc, nil
}

var _ TokenVerifier = (*JWTVerifier)(nil)
var _ TokenVerifier = (*OIDCVerifier)(nil)
