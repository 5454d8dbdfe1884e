package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"swipe-match-backend/internal/identity"
	"swipe-match-backend/internal/models"
	"swipe-match-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	jwtExpDays    = 30
	adminExpHours = 12
	roleUser      = "user"
	roleAdmin     = "admin"
	defaultName   = "User"
)

// Session is the result of a successful sign-in
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// ProfileUpdate carries optional profile changes
type ProfileUpdate struct {
	Name      *string `json:"name"`
	Avatar    *string `json:"avatar"`
	PushToken *string `json:"push_token"`
}

// TokenClaims is what a validated session token carries
type TokenClaims struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the token was issued to the catalogue admin
func (c TokenClaims) IsAdmin() bool { return c.Role == roleAdmin }

// UserService handles sign-in, sessions and profiles
type UserService struct {
	users         repository.UserStore
	directory     *Directory
	verifier      identity.Verifier
	jwtSecret     string
	adminPassword string
}

// NewUserService creates a new user service
func NewUserService(
	users repository.UserStore,
	directory *Directory,
	verifier identity.Verifier,
	jwtSecret, adminPassword string,
) *UserService {
	return &UserService{
		users:         users,
		directory:     directory,
		verifier:      verifier,
		jwtSecret:     jwtSecret,
		adminPassword: adminPassword,
	}
}

// SignIn verifies an identity-provider token, creates the user on first
// sign-in and returns a session token
func (s *UserService) SignIn(ctx context.Context, idToken string) (*Session, error) {
	claims, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, identity.ErrProviderUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrRemoteFailure, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.CreateUser(ctx, claims)
		if err != nil {
			return nil, err
		}
	default:
		return nil, remote(ErrRemoteFailure, err)
	}

	token, err := s.GenerateJWT(user.ID, roleUser, time.Now().AddDate(0, 0, jwtExpDays))
	if err != nil {
		return nil, err
	}

	return &Session{User: user, Token: token}, nil
}

// CreateUser creates the local identity for a verified subject
func (s *UserService) CreateUser(ctx context.Context, claims *identity.Claims) (*models.User, error) {
	code, err := s.directory.IssueCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = defaultName
	}

	user := &models.User{
		ID:        claims.Subject,
		Name:      name,
		Email:     claims.Email,
		Avatar:    claims.Picture,
		Code:      code,
		CreatedAt: time.Now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent first sign-in for the same subject got there first.
		if errors.Is(err, repository.ErrConflict) {
			if existing, getErr := s.users.GetByID(ctx, claims.Subject); getErr == nil {
				return existing, nil
			}
		}
		return nil, remote(ErrRemoteFailure, err)
	}

	log.Info().
		Str("user_id", user.ID).
		Str("code", user.Code).
		Msg("User created")

	return user, nil
}

// Me returns the user record of userID
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, remote(ErrUserNotFound, err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of update
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil || update.Avatar != nil {
		name, avatar := user.Name, user.Avatar
		if update.Name != nil {
			name = strings.TrimSpace(*update.Name)
			if name == "" {
				return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
			}
		}
		if update.Avatar != nil {
			avatar = *update.Avatar
		}
		if err := s.users.UpdateProfile(ctx, userID, name, avatar); err != nil {
			return nil, remote(ErrUserNotFound, err)
		}
	}

	if update.PushToken != nil {
		if err := s.UpdatePushToken(ctx, userID, *update.PushToken); err != nil {
			return nil, err
		}
	}

	return s.Me(ctx, userID)
}

// UpdatePushToken registers the device token for push notifications.
// An empty token unregisters the device.
func (s *UserService) UpdatePushToken(ctx context.Context, userID, pushToken string) error {
	var token *string
	if pushToken != "" {
		token = &pushToken
	}
	if err := s.users.UpdatePushToken(ctx, userID, token); err != nil {
		return remote(ErrUserNotFound, err)
	}
	return nil
}

// AdminToken exchanges the admin password for an admin session token
func (s *UserService) AdminToken(password string) (string, error) {
	if s.adminPassword == "" || subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		return "", fmt.Errorf("%w: wrong admin password", ErrUnauthorized)
	}
	return s.GenerateJWT("admin", roleAdmin, time.Now().Add(adminExpHours*time.Hour))
}

// GenerateJWT generates a JWT token for a subject
func (s *UserService) GenerateJWT(userID, role string, expires time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     expires.Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns its claims
func (s *UserService) ValidateJWT(tokenString string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return TokenClaims{}, fmt.Errorf("%w: failed to parse token: %w", ErrUnauthorized, err)
	}

	if !token.Valid {
		return TokenClaims{}, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return TokenClaims{}, fmt.Errorf("%w: user_id not found in token", ErrUnauthorized)
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = roleUser
	}

	return TokenClaims{UserID: userID, Role: role}, nil
}
