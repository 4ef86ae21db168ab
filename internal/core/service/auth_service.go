package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/shop-api/internal/core/domain"
	"github.com/rl1809/shop-api/internal/pkg/logger"
	"github.com/rl1809/shop-api/internal/port"
)

type Claims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users    port.UserStore
	log      *logger.Logger
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthService(users port.UserStore, log *logger.Logger, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		log:      log.With("service", "auth"),
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

func (s *AuthService) Register(ctx context.Context, email, username, password, role string) (*domain.User, error) {
	if email == "" || username == "" || password == "" {
		return nil, fmt.Errorf("%w: email, username and password are required", domain.ErrInvalidInput)
	}
	userRole := domain.RoleCustomer
	if role != "" {
		parsed, ok := domain.ParseRole(role)
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
		}
		userRole = parsed
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Username:  username,
		Password:  string(hash),
		Role:      userRole,
		CreatedAt: time.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user registered", "userID", user.ID, "role", user.Role)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("lookup email: %w", err)
	}
	if user == nil {
		return "", nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, domain.ErrUnauthorized
	}

	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, user, nil
}

// ParseToken validates a bearer token and resolves the acting identity.
func (s *AuthService) ParseToken(tokenString string) (domain.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return domain.Actor{}, domain.ErrUnauthorized
	}
	if claims.UserID == "" {
		return domain.Actor{}, domain.ErrUnauthorized
	}
	return domain.Actor{ID: claims.UserID, Role: claims.Role}, nil
}

func (s *AuthService) Profile(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}
