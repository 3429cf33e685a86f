package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"secretsanta/internal/domain"
)

// VerifierConfig selects how organizer tokens are checked. Secret enables
// HS256; PublicKeyPEM enables RS256, which is what Cognito signs ID tokens with.
// Issuer and Audience are enforced when set.
type VerifierConfig struct {
	Secret       string
	PublicKeyPEM []byte
	Issuer       string
	Audience     string
	Leeway       time.Duration
}

// Enabled reports whether any verification key is configured.
func (c VerifierConfig) Enabled() bool {
	return c.Secret != "" || len(c.PublicKeyPEM) > 0
}

type organizerClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	TokenUse string `json:"token_use,omitempty"`
}

type jwtVerifier struct {
	secret    []byte
	publicKey any
	parser    *jwt.Parser
}

// NewJWTVerifier returns a TokenVerifier for cfg. It fails when no key is
// configured or the public key cannot be parsed.
func NewJWTVerifier(cfg VerifierConfig) (domain.TokenVerifier, error) {
	if !cfg.Enabled() {
		return nil, errors.New("no token verification key configured")
	}
	v := &jwtVerifier{}
	var methods []string
	if cfg.Secret != "" {
		v.secret = []byte(cfg.Secret)
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if len(cfg.PublicKeyPEM) > 0 {
		key, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse token public key: %w", err)
		}
		v.publicKey = key
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

func (v *jwtVerifier) Verify(tokenString string) (string, error) {
	claims := &organizerClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, v.key)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	// Cognito access tokens carry token_use "access" and no email.
	if claims.TokenUse != "" && claims.TokenUse != "id" {
		return "", fmt.Errorf("invalid token: token_use %q not accepted", claims.TokenUse)
	}
	if claims.Subject == "" {
		return "", errors.New("invalid token: missing subject")
	}
	return claims.Subject, nil
}

func (v *jwtVerifier) key(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.secret != nil {
			return v.secret, nil
		}
	case *jwt.SigningMethodRSA:
		if v.publicKey != nil {
			return v.publicKey, nil
		}
	}
	return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
}
