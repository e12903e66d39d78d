package auth

import (
	"fmt"
	"time"

	"colony-server/internal/colony"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify the player behind a request. Owner is the stable id the
// colony store keys claims by.
type Claims struct {
	Owner colony.Owner `json:"owner"`
	Label string       `json:"label"`
	jwt.RegisteredClaims
}

func checkSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("JWT secret is required but not set")
	}
	if len(secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters long for security")
	}
	return nil
}

func GenerateJWT(secret string, owner colony.Owner, label string, ttl time.Duration) (string, error) {
	if err := checkSecret(secret); err != nil {
		return "", fmt.Errorf("cannot generate JWT: %w", err)
	}
	if owner == "" {
		return "", fmt.Errorf("cannot generate JWT: owner is required")
	}

	now := time.Now()
	claims := Claims{
		Owner: owner,
		Label: label,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   string(owner),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateJWT(secret, tokenString string) (*Claims, error) {
	if err := checkSecret(secret); err != nil {
		return nil, fmt.Errorf("cannot validate JWT: %w", err)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.Owner == "" {
			return nil, fmt.Errorf("token has no owner")
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
