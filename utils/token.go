package utils

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParticipantClaims identifies one roster member of one session.
type ParticipantClaims struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("❌ JWT_SECRET is not set — service cannot issue participant tokens")
	}
	return []byte(secret)
}

// GenerateParticipantToken signs a token a participant presents on submission.
func GenerateParticipantToken(sessionID, username string, ttl time.Duration) (string, error) {
	claims := ParticipantClaims{
		SessionID: sessionID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ParseParticipantToken validates a token and returns its claims.
func ParseParticipantToken(tokenString string) (*ParticipantClaims, error) {
	claims := &ParticipantClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.SessionID == "" || claims.Username == "" {
		return nil, errors.New("invalid participant token")
	}
	return claims, nil
}
