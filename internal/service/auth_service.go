package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/elimu-sms/admissions-api/internal/models"
	appErrors "github.com/elimu-sms/admissions-api/pkg/errors"
)

// AuthService validates bearer tokens issued by the school identity
// provider and turns their claims into workflow actors. Credential
// management lives with the identity provider, not here.
type AuthService struct {
	secret     []byte
	expiration time.Duration
	logger     *zap.Logger
}

// NewAuthService constructs the token validator.
func NewAuthService(secret string, expiration time.Duration, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiration <= 0 {
		expiration = 15 * time.Minute
	}
	return &AuthService{secret: []byte(secret), expiration: expiration, logger: logger}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown role in token")
	}

	return claims, nil
}

// IssueToken signs a short-lived token for the given identity. Used by
// service-to-service callers and the test suite; interactive logins happen
// at the identity provider.
func (s *AuthService) IssueToken(userID string, role models.UserRole, capabilities []models.Capability) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.expiration)
	extra := make([]string, 0, len(capabilities))
	for _, cap := range capabilities {
		extra = append(extra, string(cap))
	}

	claims := models.JWTClaims{
		UserID:       userID,
		Role:         role,
		Capabilities: extra,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return signed, expiresAt, nil
}
