package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"resumeanalyzer/internal/config"
	"resumeanalyzer/internal/domain"
)

// Claims is the bearer token payload. The subject is the caller's user id.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 bearer tokens.
type TokenService interface {
	IssueToken(userID string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type tokenService struct {
	cfg config.AuthConfig
	now func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(cfg config.AuthConfig) TokenService {
	return &tokenService{cfg: cfg, now: time.Now}
}

func (s *tokenService) IssueToken(userID string, ttl time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	now := s.now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  userID,
		Issuer:   s.cfg.Issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("tokenService.IssueToken: %w", err)
	}
	return signed, nil
}

func (s *tokenService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(domain.ErrUnauthorized, fmt.Errorf("parsing token: %w", err))
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	return claims, nil
}
