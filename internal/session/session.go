// Package session mints the opaque caller identities the auction core
// consumes. Identities come from either a registered user (username/password,
// bcrypt-hashed, held in memory) or a guest session (fresh random id, the way
// the terminal client works). Either way the caller gets a signed token whose
// subject is the identity string; the core never sees tokens.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auctionhouse/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service handles user registration and session tokens
type Service struct {
	secret   []byte
	tokenTTL time.Duration

	mu    sync.RWMutex
	users map[string]*models.User // keyed by username
}

// NewService creates a session service signing tokens with the given secret.
func NewService(secret string, tokenTTL time.Duration) *Service {
	return &Service{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    make(map[string]*models.User),
	}
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	// Validate input
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if len(username) > 50 {
		return nil, fmt.Errorf("username too long (max 50 characters)")
	}
	if len(password) > 100 {
		return nil, fmt.Errorf("password too long (max 100 characters)")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return nil, fmt.Errorf("username already taken")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
	}
	s.users[username] = user

	return user, nil
}

// Login verifies credentials and generates a session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown user: %s", username)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", err
	}

	return s.issueToken(user.ID, user.Username)
}

// Guest mints an anonymous session: a fresh opaque identity and a token for
// it. No registration, mirrors one-identity-per-client-session usage.
func (s *Service) Guest(ctx context.Context) (string, string, error) {
	userID := uuid.NewString()
	token, err := s.issueToken(userID, "")
	if err != nil {
		return "", "", err
	}
	return userID, token, nil
}

func (s *Service) issueToken(userID, username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// UserFromToken extracts the caller identity from a session token.
func (s *Service) UserFromToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("token has no user id")
	}
	return userID, nil
}
