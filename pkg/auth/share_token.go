// Package auth issues and verifies signed share tokens for public
// dashboards. A share token is the only credential a public viewer
// carries: it names exactly one dashboard and expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const shareTokenIssuer = "quill-engine"

// DefaultShareTokenTTL is the lifetime of a newly issued share token.
const DefaultShareTokenTTL = 30 * 24 * time.Hour

var (
	// ErrInvalidShareToken indicates a token that failed signature or
	// structural validation.
	ErrInvalidShareToken = errors.New("invalid share token")
	// ErrShareTokenExpired indicates a structurally valid but expired token.
	ErrShareTokenExpired = errors.New("share token expired")
)

// ShareClaims is the claim set carried by a dashboard share token.
type ShareClaims struct {
	jwt.RegisteredClaims
	DashboardID string `json:"did"`
}

// ShareTokenService signs and verifies dashboard share tokens with an
// HMAC secret held only by the server.
type ShareTokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewShareTokenService creates a share token service. A zero ttl falls
// back to DefaultShareTokenTTL.
func NewShareTokenService(secret string, ttl time.Duration) *ShareTokenService {
	if ttl <= 0 {
		ttl = DefaultShareTokenTTL
	}
	return &ShareTokenService{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token granting view access to one dashboard.
func (s *ShareTokenService) Issue(dashboardID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &ShareClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    shareTokenIssuer,
			Subject:   dashboardID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		DashboardID: dashboardID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign share token: %w", err)
	}
	return signed, nil
}

// Verify validates a token string and returns the dashboard it grants
// access to. Algorithm is pinned to HS256; tokens signed any other way
// are rejected before signature verification.
func (s *ShareTokenService) Verify(tokenString string) (uuid.UUID, error) {
	claims := &ShareClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(shareTokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrShareTokenExpired
		}
		return uuid.Nil, ErrInvalidShareToken
	}
	if !token.Valid {
		return uuid.Nil, ErrInvalidShareToken
	}

	dashboardID, err := uuid.Parse(claims.DashboardID)
	if err != nil {
		return uuid.Nil, ErrInvalidShareToken
	}
	return dashboardID, nil
}
