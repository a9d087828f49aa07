package services

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tickstream/tickstream/internal/utils"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is what a verified credential carries. API-key mode has
// no identity payload, so both fields may be empty.
type TokenClaims struct {
	UserID   string
	DeviceID string
}

// AuthService verifies the opaque bearer credential on the timer
// endpoint. Two modes: an HS256 JWT signed with jwtSecret, or a static
// API key checked against a bcrypt hash. The sync core itself only
// cares whether a credential is present.
type AuthService struct {
	jwtSecret  string
	apiKeyHash string
}

func NewAuthService(jwtSecret, apiKeyHash string) *AuthService {
	return &AuthService{jwtSecret: jwtSecret, apiKeyHash: apiKeyHash}
}

func (s *AuthService) VerifyToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	if s.jwtSecret != "" {
		claims, err := s.verifyJWT(tokenString)
		if err == nil {
			return claims, nil
		}
	}

	if s.apiKeyHash != "" && utils.CheckAPIKey(s.apiKeyHash, tokenString) {
		return &TokenClaims{}, nil
	}

	return nil, ErrInvalidToken
}

func (s *AuthService) verifyJWT(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	// Device id is informational; tokens without one are still valid.
	deviceID, _ := claims["device_id"].(string)

	return &TokenClaims{UserID: userID, DeviceID: deviceID}, nil
}
