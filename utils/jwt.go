package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"swipebite_server/models"
)

// GenerateJWT signs an HS256 token carrying the user's identity claims.
func GenerateJWT(secret []byte, user models.User, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	if user.Avatar != "" {
		claims["avatar"] = user.Avatar
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
