package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/repository"
	"github.com/lulius2021/alarmbriefing-server-go/internal/util"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores anything longer
	maxUserNameLength = 100
)

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	users     repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthService(users repository.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.MissingRequired("email")
	}
	if !util.IsValidEmail(email) {
		return nil, apperrors.InvalidInput("email", "not a valid address")
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, apperrors.InvalidInput("password", fmt.Sprintf("must be %d-%d characters", minPasswordLength, maxPasswordLength))
	}
	name = util.Truncate(util.StripHTML(name), maxUserNameLength)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		log.Error().Err(err).Msg("register: failed to look up email")
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("Account")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		log.Error().Err(err).Msg("register: failed to hash password")
		return nil, apperrors.Internal("Failed to create account")
	}

	user, err := s.users.Create(ctx, model.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	})
	if repository.IsUniqueViolation(err, "") {
		return nil, apperrors.AlreadyExists("Account")
	}
	if err != nil {
		log.Error().Err(err).Msg("register: failed to create user")
		return nil, apperrors.Database(err)
	}

	log.Info().Str("userId", user.ID).Msg("user registered")

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.MissingRequired("email and password")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		log.Error().Err(err).Msg("login: failed to look up email")
		return nil, apperrors.Database(err)
	}
	// Same answer for unknown email and wrong password.
	if user == nil || !util.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}

	log.Info().Str("userId", user.ID).Msg("user logged in")

	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("failed to load user")
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

// DeleteAccount removes the user together with all pairings, audit entries
// and resources through the schema's cascades.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	deleted, err := s.users.Delete(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("failed to delete account")
		return apperrors.Database(err)
	}
	if !deleted {
		return apperrors.NotFound("User")
	}

	log.Info().Str("userId", userID).Msg("account deleted")
	return nil
}

// ValidateToken checks an HS256 session token and returns its subject.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", apperrors.TokenExpired()
	}
	if err != nil {
		return "", apperrors.InvalidToken("Invalid session token")
	}
	if claims.Subject == "" {
		return "", apperrors.InvalidToken("Invalid session token")
	}

	return claims.Subject, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		log.Error().Err(err).Msg("failed to sign session token")
		return nil, apperrors.Internal("Failed to issue session token")
	}

	return &AuthResult{Token: signed, User: user}, nil
}
