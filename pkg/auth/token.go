// Package auth issues and verifies HS256 development tokens that stand in for
// identity-provider ID tokens when MARKETPLACE_AUTH_PROVIDER=local.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// TokenClaims mirrors the custom claims the identity provider places on ID tokens.
type TokenClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Plan  string `json:"plan,omitempty"`
	jwt.RegisteredClaims
}

// MintToken issues a signed development token for the given subject.
func MintToken(cfg config.AuthConfig, now time.Time, claims identity.Claims) (string, error) {
	if cfg.LocalSecret == "" {
		return "", fmt.Errorf("local auth secret is required")
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", fmt.Errorf("subject is required")
	}
	ttl := cfg.LocalTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	token := jwt.NewWithClaims(jwtSigningMethod, TokenClaims{
		Email: claims.Email,
		Name:  claims.Name,
		Plan:  claims.Plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			Issuer:    cfg.LocalIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString([]byte(cfg.LocalSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// LocalVerifier validates development tokens.
type LocalVerifier struct {
	cfg config.AuthConfig
}

func NewLocalVerifier(cfg config.AuthConfig) (*LocalVerifier, error) {
	if cfg.LocalSecret == "" {
		return nil, fmt.Errorf("local auth secret is required")
	}
	return &LocalVerifier{cfg: cfg}, nil
}

// Verify implements identity.Verifier.
func (v *LocalVerifier) Verify(_ context.Context, tokenString string) (identity.Claims, error) {
	claims := &TokenClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwtSigningMethod.Alg()})}
	if v.cfg.LocalIssuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.LocalIssuer))
	}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(v.cfg.LocalSecret), nil
		},
		opts...,
	)
	if err != nil {
		return identity.Claims{}, fmt.Errorf("%w: %v", identity.ErrInvalidCredential, err)
	}
	if claims.Subject == "" {
		return identity.Claims{}, fmt.Errorf("%w: missing subject", identity.ErrInvalidCredential)
	}
	return identity.Claims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Plan:   claims.Plan,
	}, nil
}
