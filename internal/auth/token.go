package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campusdesk/reception-service/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret     []byte
	ttl        time.Duration
	visitorTTL time.Duration
	now        func() time.Time
}

// NewTokenManager builds a new manager. Staff tokens live for ttlMinutes and
// visitor tokens for visitorTTLMinutes.
func NewTokenManager(secret string, ttlMinutes, visitorTTLMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	if visitorTTLMinutes <= 0 {
		visitorTTLMinutes = 60
	}
	return &TokenManager{
		secret:     []byte(secret),
		ttl:        time.Duration(ttlMinutes) * time.Minute,
		visitorTTL: time.Duration(visitorTTLMinutes) * time.Minute,
		now:        time.Now,
	}
}

// Claims describes JWT payload.
type Claims struct {
	SubjectID   string             `json:"sub"`
	Subject     domain.SubjectType `json:"subject"`
	DisplayName string             `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a JWT for the subject.
func (tm *TokenManager) GenerateToken(subjectID string, subject domain.SubjectType, displayName string) (domain.Token, string, error) {
	ttl := tm.ttl
	if subject == domain.SubjectTypeVisitor {
		ttl = tm.visitorTTL
	}
	issuedAt := tm.now()
	meta := domain.Token{
		ID:          uuid.NewString(),
		SubjectID:   subjectID,
		Subject:     subject,
		DisplayName: displayName,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(ttl),
	}
	claims := &Claims{
		SubjectID:   subjectID,
		Subject:     subject,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        meta.ID,
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(meta.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return domain.Token{}, "", err
	}
	return meta, tokenString, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
