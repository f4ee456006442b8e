package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"lifeguard-backend/internal/db"
	"lifeguard-backend/internal/metrics"
	"lifeguard-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

type UserService struct {
	store     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *slog.Logger
}

func NewUserService(store UserStore, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *UserService {
	return &UserService{store: store, jwtSecret: jwtSecret, tokenTTL: tokenTTL, logger: logger}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.PublicUser, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	_, err := s.store.GetUserByEmail(ctx, req.Email)
	if err == nil {
		metrics.AuthAttempts.WithLabelValues("register", "duplicate").Inc()
		return nil, ErrDuplicateEmail
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, &DataAccessError{Op: "lookup user", Err: err}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := models.User{Name: req.Name, Email: req.Email, PasswordHash: string(hash)}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			metrics.AuthAttempts.WithLabelValues("register", "duplicate").Inc()
			return nil, ErrDuplicateEmail
		}
		return nil, &PersistenceError{Err: err}
	}

	metrics.AuthAttempts.WithLabelValues("register", "ok").Inc()
	s.logger.Info("user registered", "user_id", user.ID)
	public := user.Public()
	return &public, nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, db.ErrNotFound) {
		metrics.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, &DataAccessError{Op: "lookup user", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	token, err := GenerateJWT(s.jwtSecret, user.ID, user.Email, s.tokenTTL)
	if err != nil {
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues("login", "ok").Inc()
	return &models.AuthResponse{
		User:  user.Public(),
		Token: token,
	}, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, &DataAccessError{Op: "list users", Err: err}
	}
	public := make([]models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}
	return public, nil
}

// ValidateToken checks a token issued by Login
func (s *UserService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	return ValidateToken(s.jwtSecret, tokenString)
}

func GenerateJWT(secret string, userID int, email string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
