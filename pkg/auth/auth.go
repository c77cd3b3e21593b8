package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arnavshah/duty-roster-go/pkg/config"
	"github.com/arnavshah/duty-roster-go/pkg/database"
)

var (
	// ErrInvalidToken is returned for a malformed, expired or foreign JWT
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidKey is returned for an API key whose signature does not match
	ErrInvalidKey = errors.New("invalid api key")
)

var jwtAlgorithm = jwt.SigningMethodHS256

// DefaultCost is the bcrypt cost used for operator passwords
const DefaultCost = 14

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator signs operator tokens and API keys with the configured secrets
type Authenticator struct {
	jwtSecret    []byte
	masterSecret []byte
	ttl          time.Duration
	cost         int

	adminUsername string
	adminPassword string
}

// New builds an Authenticator from the auth section of the config
func New(cfg config.AuthConfig) *Authenticator {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		jwtSecret:     []byte(cfg.JWTSecret),
		masterSecret:  []byte(cfg.APIMasterSecret),
		ttl:           ttl,
		cost:          DefaultCost,
		adminUsername: cfg.AdminUsername,
		adminPassword: cfg.AdminPassword,
	}
}

// WithCost overrides the bcrypt cost
func (a *Authenticator) WithCost(cost int) *Authenticator {
	a.cost = cost
	return a
}

// HashPassword hashes a password using bcrypt
func (a *Authenticator) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for an operator
func (a *Authenticator) CreateToken(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(a.jwtSecret)
}

// VerifyToken verifies a JWT token
func (a *Authenticator) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAPIKey looks a stored key up and stamps its last use
func VerifyAPIKey(ctx context.Context, db *gorm.DB, key string) (*database.APIKey, error) {
	var apiKey database.APIKey
	if err := db.WithContext(ctx).Where(&database.APIKey{Key: key}).First(&apiKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, err
	}

	now := time.Now()
	apiKey.LastUsed = &now
	if err := db.WithContext(ctx).Model(&apiKey).Update("last_used", now).Error; err != nil {
		return nil, fmt.Errorf("stamp api key: %w", err)
	}

	return &apiKey, nil
}

// EnsureAdminExists creates the configured admin when no operator account exists yet
func (a *Authenticator) EnsureAdminExists(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&database.MasterUser{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	username := a.adminUsername
	if username == "" {
		username = "admin"
	}
	password := a.adminPassword
	if password == "" {
		password = "admin123"
	}

	hash, err := a.HashPassword(password)
	if err != nil {
		return err
	}

	user := database.MasterUser{
		Username:     username,
		PasswordHash: hash,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info("default admin user created", zap.String("username", username))
	return nil
}

// Login checks an operator's credentials and issues a token
func (a *Authenticator) Login(ctx context.Context, db *gorm.DB, username, password string) (string, error) {
	var user database.MasterUser
	if err := db.WithContext(ctx).Where(&database.MasterUser{Username: username}).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrInvalidToken
	}
	return a.CreateToken(user.Username)
}

func (a *Authenticator) sign(userID string) string {
	h := hmac.New(sha256.New, a.masterSecret)
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateHMACKey creates a signed API key using HMAC-SHA256
func (a *Authenticator) GenerateHMACKey(userID string) string {
	return userID + "." + a.sign(userID)
}

// VerifyHMACKey validates an HMAC-signed API key and returns its user id
func (a *Authenticator) VerifyHMACKey(key string) (string, error) {
	userID, provided, ok := strings.Cut(key, ".")
	if !ok || userID == "" || strings.Contains(provided, ".") {
		return "", fmt.Errorf("%w: bad format", ErrInvalidKey)
	}

	// constant-time comparison
	if !hmac.Equal([]byte(provided), []byte(a.sign(userID))) {
		return "", fmt.Errorf("%w: bad signature", ErrInvalidKey)
	}

	return userID, nil
}

// KeyPreview returns the displayable prefix of a key
func KeyPreview(key string) string {
	if len(key) > 12 {
		return key[:12] + "..."
	}
	return key
}
