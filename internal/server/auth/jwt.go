// Package auth issues and verifies the bearer tokens registered sponsors use
// to authorize relayed (gas-sponsored) appends.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ledgerink/ledgerink/internal/common"
)

// Claims carries the registered claims plus the sponsor identifier.
type Claims struct {
	jwt.RegisteredClaims
	SponsorID string
}

// GenerateSponsorToken signs a sponsor token (HS256) valid for the given
// duration.
func GenerateSponsorToken(sponsorID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		SponsorID: sponsorID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetSponsorIDFromToken verifies the token and returns the sponsor id.
// Expiry is reported as common.ErrTokenExpired; everything else invalid maps
// to common.ErrInvalidToken.
func GetSponsorIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.SponsorID, nil
}
