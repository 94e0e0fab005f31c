package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arnavshah/warlist-bot/pkg/database"
)

var jwtAlgorithm = jwt.SigningMethodHS256

// BcryptCost is the cost used by HashPassword
var BcryptCost = 14

// DefaultRateLimit is the daily request limit of a key created on first use
const DefaultRateLimit = 10000

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Signer issues and checks admin tokens and API keys
type Signer struct {
	jwtSecret    []byte
	masterSecret []byte
	TokenTTL     time.Duration
}

// NewSigner creates a signer from the JWT and API key secrets
func NewSigner(jwtSecret, masterSecret string) *Signer {
	return &Signer{
		jwtSecret:    []byte(jwtSecret),
		masterSecret: []byte(masterSecret),
		TokenTTL:     24 * time.Hour,
	}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for a user
func (s *Signer) CreateToken(username string) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(s.jwtSecret)
}

// VerifyToken verifies a JWT token
func (s *Signer) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateHMACKey creates a signed API key using HMAC-SHA256
func (s *Signer) GenerateHMACKey(name string) string {
	return name + "." + s.sign(name)
}

// VerifyHMACKey validates an HMAC-signed API key and returns its name
func (s *Signer) VerifyHMACKey(key string) (string, error) {
	i := strings.LastIndex(key, ".")
	if i <= 0 || i == len(key)-1 {
		return "", ErrInvalidKeyFormat
	}

	name, provided := key[:i], key[i+1:]

	if !hmac.Equal([]byte(provided), []byte(s.sign(name))) {
		return "", ErrInvalidSignature
	}

	return name, nil
}

func (s *Signer) sign(name string) string {
	h := hmac.New(sha256.New, s.masterSecret)
	h.Write([]byte(name))
	return hex.EncodeToString(h.Sum(nil))
}

// KeyPreview returns a displayable fragment of key
func KeyPreview(key string) string {
	if len(key) > 8 {
		return key[:3] + "..." + key[len(key)-4:]
	}
	return "****"
}

// TouchAPIKey returns the record of a verified key, creating it on first
// use, and stamps its last use.
func TouchAPIKey(db *gorm.DB, key, name string) (*database.APIKey, error) {
	var apiKey database.APIKey
	err := db.Where(database.APIKey{Key: key}).Attrs(database.APIKey{
		KeyPreview: KeyPreview(key),
		Name:       name,
		RateLimit:  DefaultRateLimit,
	}).FirstOrCreate(&apiKey).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	apiKey.LastUsed = &now
	if err := db.Model(&apiKey).Update("last_used", now).Error; err != nil {
		return nil, err
	}

	return &apiKey, nil
}

// EnsureAdminExists creates the admin user when no admin exists yet
func EnsureAdminExists(db *gorm.DB, username, password string, logger *slog.Logger) error {
	var count int64
	if err := db.Model(&database.MasterUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = "admin123"
		logger.Warn("ADMIN_PASSWORD not set, using the default password")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	user := database.MasterUser{
		Username:     username,
		PasswordHash: hash,
	}

	if err := db.Create(&user).Error; err != nil {
		return err
	}
	logger.Info("default admin user created", "username", username)
	return nil
}
