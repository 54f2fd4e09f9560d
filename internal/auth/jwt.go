// Package auth issues and verifies the bearer tokens that identify a principal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// Issuer is the iss claim of every token.
const Issuer = "tasktrail"

// ErrExpiredToken is returned when the token has expired. It also matches domain.ErrInvalidToken.
var ErrExpiredToken = fmt.Errorf("%w: token has expired", domain.ErrInvalidToken)

// Claims are the JWT claims carried by a token. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager signs and validates HS256 tokens.
type Manager struct {
	secret []byte
	now    func() time.Time
}

// NewManager creates a Manager with the shared secret.
func NewManager(secret string) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Manager{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a signed token for userID that expires after ttl.
func (m *Manager) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}

	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the token and returns the principal it names.
func (m *Manager) Verify(tokenString string) (domain.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, ErrExpiredToken
		}
		return domain.Principal{}, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	return domain.Principal{UserID: claims.Subject}, nil
}
