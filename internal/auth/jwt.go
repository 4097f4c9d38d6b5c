package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingToken  = errors.New("missing authorization token")
	ErrInvalidAPIKey = errors.New("invalid api key")
)

// Token types carried in the "typ" claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

const issuer = "blockfall"

// Claims holds the JWT payload.
type Claims struct {
	ClientID  string `json:"client_id"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates tokens for API clients. Clients trade
// the shared API key for a token pair.
type JWTManager struct {
	secret        []byte
	apiKey        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewJWTManager creates a JWTManager signing with secret and accepting apiKey.
func NewJWTManager(secret, apiKey string) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		apiKey:        []byte(apiKey),
		accessExpiry:  15 * time.Minute,
		refreshExpiry: 7 * 24 * time.Hour,
	}
}

// CheckAPIKey reports whether key matches the configured API key.
func (m *JWTManager) CheckAPIKey(key string) error {
	if len(m.apiKey) == 0 || subtle.ConstantTimeCompare([]byte(key), m.apiKey) != 1 {
		return ErrInvalidAPIKey
	}
	return nil
}

func (m *JWTManager) generate(clientID, typ string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ClientID:  clientID,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   clientID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// GenerateAccessToken creates a short-lived access token for the given client.
func (m *JWTManager) GenerateAccessToken(clientID string) (string, error) {
	return m.generate(clientID, TokenAccess, m.accessExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token.
func (m *JWTManager) GenerateRefreshToken(clientID string) (string, error) {
	return m.generate(clientID, TokenRefresh, m.refreshExpiry)
}

// ValidateToken parses and validates a JWT string of the given type.
func (m *JWTManager) ValidateToken(tokenStr, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != typ || claims.ClientID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenPair holds an access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// GenerateTokenPair creates both tokens for a client.
func (m *JWTManager) GenerateTokenPair(clientID string) (*TokenPair, error) {
	access, err := m.GenerateAccessToken(clientID)
	if err != nil {
		return nil, err
	}
	refresh, err := m.GenerateRefreshToken(clientID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(m.accessExpiry.Seconds()),
	}, nil
}
