// ABOUTME: JWT verification helper for the function auth strategy.
// ABOUTME: Uses HS256 signing with a configurable secret.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// JWTPrincipal carries the verified subject and claims of a JWT credential.
type JWTPrincipal struct {
	Subject string
	Claims  map[string]any
}

func (p *JWTPrincipal) Identity() string { return p.Subject }

// JWTVerify returns a VerifyFunc that validates HS256 signed JWTs against
// the given secret and produces a JWTPrincipal from the "sub" claim.
// Intended for use as the function strategy's verifier.
func JWTVerify(secret []byte) VerifyFunc {
	return func(credential string) (Principal, error) {
		token, err := jwt.Parse(credential, func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method is HS256
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrExpiredToken
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if !token.Valid {
			return nil, ErrInvalidToken
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, ErrInvalidToken
		}

		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
		}

		return &JWTPrincipal{Subject: sub, Claims: claims}, nil
	}
}

// GenerateJWT creates an HS256 token for the given subject with expiration.
// Mostly useful for tests and local tooling.
func GenerateJWT(subject string, secret []byte, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
