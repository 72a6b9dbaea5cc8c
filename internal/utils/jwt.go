package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired marks a structurally valid token whose "exp" claim has
// passed; callers can distinguish it from other validation failures to log
// the precise reason without disclosing it.
var ErrTokenExpired = errors.New("token is expired")

// SignJWTToken signs the given claims with HMAC-SHA256 and returns the
// compact serialized form.
//
// Returns an error if the sign key is empty or signing fails.
func SignJWTToken(claims jwt.Claims, signKey string) (string, error) {
	if signKey == "" {
		return "", errors.New("invalid params for generating JWT Token")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(signKey))
	if err != nil {
		return "", fmt.Errorf("error occurred during signing JWT token: %w", err)
	}

	return tokenString, nil
}

// ParseJWTToken validates tokenString and decodes its payload into claims.
//
// Validation includes:
//   - Signature verification using the provided sign key (HMAC only)
//   - Issuer (iss) claim check against the provided issuer
//   - Audience (aud) claim check against the provided audience
//   - Expiration (exp) claim check
//
// Returns [ErrTokenExpired] for a structurally valid but expired token, and a
// wrapped error for any other validation failure.
func ParseJWTToken(tokenString string, claims jwt.Claims, signKey, issuer, audience string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(signKey), nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return fmt.Errorf("error occurred validating and parsing token: %w", err)
	}

	if !token.Valid {
		return errors.New("invalid token")
	}

	return nil
}

// IsExpiringSoon reports whether expiresAt falls within the given window from
// now. Middleware uses it to signal clients to refresh proactively before the
// access token lapses.
func IsExpiringSoon(expiresAt time.Time, now time.Time, window time.Duration) bool {
	return expiresAt.Sub(now) <= window
}
