package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const claimSessionID = "sessionId"

// GenerateSessionToken signs an HS256 token binding the bearer to sessionID.
func GenerateSessionToken(sessionID string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("session token ttl must be positive, got %v", ttl)
	}
	now := time.Now()

	// Set standard JWT claims
	claims := jwt.MapClaims{
		claimSessionID: sessionID,
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// BearerToken strips the "Bearer " prefix from an Authorization header.
func BearerToken(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errors.New("authorization header format must be Bearer {token}")
	}
	return strings.TrimPrefix(authHeader, "Bearer "), nil
}

// ParseSessionToken validates tokenString and returns its session ID.
func ParseSessionToken(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Name {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", errors.New("expiration time (exp) claim missing")
	}
	if time.Now().After(exp.Time) {
		return "", errors.New("token has expired")
	}

	sessionID, ok := claims[claimSessionID].(string)
	if !ok || sessionID == "" {
		return "", errors.New("sessionId claim missing or invalid")
	}
	return sessionID, nil
}
