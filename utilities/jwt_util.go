package utilities

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mindtrack-backend/internal/config"
	"mindtrack-backend/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid or malformed token")
	ErrTokenExpired = errors.New("token has expired")
)

type tokenSettings struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

var (
	tokenMu sync.RWMutex
	tokens  = tokenSettings{
		accessSecret:  []byte(config.DevAccessSecret),
		refreshSecret: []byte(config.DevRefreshSecret),
		accessTTL:     15 * time.Minute,
		refreshTTL:    7 * 24 * time.Hour,
	}
)

// ConfigureTokens installs the secrets and lifetimes from configuration.
func ConfigureTokens(auth config.AuthenticationConfig) {
	tokenMu.Lock()
	defer tokenMu.Unlock()
	tokens = tokenSettings{
		accessSecret:  []byte(auth.AccessSecret),
		refreshSecret: []byte(auth.RefreshSecret),
		accessTTL:     auth.AccessTTL(),
		refreshTTL:    auth.RefreshTTL(),
	}
}

func settings() tokenSettings {
	tokenMu.RLock()
	defer tokenMu.RUnlock()
	return tokens
}

// Claims struct
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateTokens creates both access and refresh tokens
func GenerateTokens(user *model.User) (string, string, error) {
	s := settings()
	accessToken, err := generateToken(user, s.accessSecret, s.accessTTL)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := generateToken(user, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// ValidateToken verifies the token and extracts claims
func ValidateToken(tokenStr string, isRefresh bool) (*Claims, error) {
	s := settings()
	secret := s.accessSecret
	if isRefresh {
		secret = s.refreshSecret
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// RefreshTokens generates a new access and refresh token using a valid refresh token
func RefreshTokens(refreshToken string) (string, string, error) {
	claims, err := ValidateToken(refreshToken, true)
	if err != nil {
		return "", "", err
	}

	return GenerateTokens(&model.User{
		Base:  model.Base{ID: claims.UserID},
		Email: claims.Email,
	})
}

// Helper function to generate JWT token
func generateToken(user *model.User, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
