package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/showrunner/showrunner/internal/watchlist"
)

const TokenExpiry = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordRequired   = errors.New("password is required")
	ErrUsernameRequired   = errors.New("username is required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// Claims represents JWT claims.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service handles account signup, login and token validation.
type Service struct {
	users     *watchlist.Store
	jwtSecret []byte
	logger    zerolog.Logger
}

// NewService creates a new auth service. An empty secret gets replaced
// by a random one, which invalidates outstanding tokens on restart.
func NewService(users *watchlist.Store, jwtSecret string, logger zerolog.Logger) (*Service, error) {
	secret := []byte(jwtSecret)

	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		logger.Warn().Msg("No JWT secret configured, generated an ephemeral one")
	}

	return &Service{
		users:     users,
		jwtSecret: secret,
		logger:    logger.With().Str("component", "auth").Logger(),
	}, nil
}

// Signup creates an account and returns it with a fresh token.
func (s *Service) Signup(ctx context.Context, username, password string) (*watchlist.User, string, error) {
	if username == "" {
		return nil, "", ErrUsernameRequired
	}
	if password == "" {
		return nil, "", ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, string(hash))
	if err != nil {
		return nil, "", err
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info().Str("username", username).Msg("Account created")
	return user, token, nil
}

// Login verifies the credentials and returns the account with a fresh
// token. An unknown username and a wrong password are indistinguishable
// to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*watchlist.User, string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, watchlist.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// GenerateToken creates a signed JWT for the account.
func (s *Service) GenerateToken(user *watchlist.User) (string, error) {
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "showrunner",
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a JWT and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
