package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const tokenIssuer = "bank-ledger"

// ============================================================
// Access tokens
// ============================================================
//
// Identity is established outside the ledger. The ledger only validates
// HS256 access tokens and, in development, issues them.

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService signs and validates access tokens.
type TokenService struct {
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
}

func NewTokenService(secret string, accessTTL time.Duration, logger *zap.Logger) *TokenService {
	return &TokenService{
		jwtSecret: []byte(secret),
		accessTTL: accessTTL,
		logger:    logger,
	}
}

// TTL is the lifetime of issued access tokens.
func (s *TokenService) TTL() time.Duration { return s.accessTTL }

// SignAccessToken issues an access token for userID.
func (s *TokenService) SignAccessToken(userID string) (string, error) {
	if userID == "" {
		return "", &domain.ErrValidation{Field: "user_id", Message: "is required"}
	}
	now := time.Now()
	claims := JWTClaims{
		Sub:  userID,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	s.logger.Debug("access token issued", zap.String("user_id", userID))
	return signed, nil
}

// ValidateAccessToken parses tokenString and checks signature, expiry and type.
func (s *TokenService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	if claims.Sub == "" {
		return nil, &domain.ErrUnauthorized{Message: "token has no subject"}
	}
	return claims, nil
}
