package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type localClaims struct {
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// CreateToken mints an HS256 token for local development and tests.
func CreateToken(secret, subject, nickname, email string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("auth.go: JWT secret key not set")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, localClaims{
		Nickname: nickname,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

// VerifyToken checks an HS256 token and returns its principal.
func VerifyToken(secret, tokenString string) (*Principal, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth.go: JWT secret key not set")
	}

	var claims localClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &Principal{
		Subject:  claims.Subject,
		Nickname: claims.Nickname,
		Email:    claims.Email,
		Token:    tokenString,
	}, nil
}
