// Package auth mints the access token handed to a client after a successful
// handshake and validates it for downstream services.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/srpauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuerName = "srpauth"

// Claims carries the authenticated identity in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
}

// Issuer signs HS256 tokens for authenticated identities.
type Issuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

func NewIssuer(secretKey []byte, validity time.Duration) *Issuer {
	return &Issuer{secret: secretKey, validity: validity, now: time.Now}
}

// Issue returns a signed token for identity.
func (i *Issuer) Issue(identity string) (string, error) {
	return GenerateToken(identity, i.secret, i.validity, i.now())
}

// Identity validates tokenString and returns its subject.
func (i *Issuer) Identity(tokenString string) (string, error) {
	return GetIdentityFromToken(tokenString, i.secret)
}

func GenerateToken(identity string, secretKey []byte, validityDuration time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuerName,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
	})

	return token.SignedString(secretKey)
}

func GetIdentityFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", errors.Join(common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
