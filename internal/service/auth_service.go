package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"focusrooms/backend/internal/backend"
	apperrors "focusrooms/backend/internal/errors"
	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/model"
	"focusrooms/backend/internal/repository"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type AuthService struct {
	users       *repository.UserRepository
	revocations *backend.Revocations
	jwtSecret   []byte
	tokenTTL    time.Duration
	refreshTTL  time.Duration
}

func NewAuthService(client *backend.Client, jwtSecret string, tokenTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:       client.Users,
		revocations: client.Revocations,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    tokenTTL,
		refreshTTL:  refreshTTL,
	}
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"max=100"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	User         model.User `json:"user"`
	FullName     *string    `json:"fullName,omitempty"`
}

type tokenClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenInfo is what a verified access token says.
type TokenInfo struct {
	UserID    string
	ExpiresAt time.Time
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, *apperrors.APIError) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FullName = strings.TrimSpace(input.FullName)
	if apiErr := validateInput(input); apiErr != nil {
		return nil, apiErr
	}

	passwordHashBytes, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("failed to secure password")
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: string(passwordHashBytes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := model.Profile{ID: user.ID, CreatedAt: now}
	if input.FullName != "" {
		fullName := input.FullName
		profile.FullName = &fullName
	}

	if err := s.users.CreateWithProfile(ctx, &user, &profile); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.Conflict("email_exists", "email already registered", nil)
		}
		logging.Error().Err(err).Msg("create user failed")
		return nil, apperrors.Internal("failed to create user")
	}

	result, apiErr := s.issue(user)
	if apiErr != nil {
		return nil, apiErr
	}
	result.FullName = profile.FullName
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, *apperrors.APIError) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || input.Password == "" {
		return nil, apperrors.BadRequest("invalid_credentials", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if err != nil {
		logging.Error().Err(err).Msg("query user failed")
		return nil, apperrors.Internal("failed to query user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	return s.issue(*user)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, *apperrors.APIError) {
	claims, apiErr := s.parse(refreshToken, tokenTypeRefresh)
	if apiErr != nil {
		return nil, apiErr
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("unknown user")
	}
	if err != nil {
		logging.Error().Err(err).Str("user_id", claims.Subject).Msg("query user failed")
		return nil, apperrors.Internal("failed to query user")
	}
	return s.issue(*user)
}

// Verify checks signature, expiry and revocation of an access token.
func (s *AuthService) Verify(ctx context.Context, accessToken string) (TokenInfo, *apperrors.APIError) {
	claims, apiErr := s.parse(accessToken, tokenTypeAccess)
	if apiErr != nil {
		return TokenInfo{}, apiErr
	}

	revoked, err := s.revocations.IsRevoked(ctx, accessToken)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", claims.Subject).Msg("revocation check failed")
	}
	if revoked {
		return TokenInfo{}, apperrors.Unauthorized("token revoked")
	}

	return TokenInfo{UserID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Revoke denies the access token for the rest of its lifetime. Invalid
// tokens are ignored.
func (s *AuthService) Revoke(ctx context.Context, accessToken string) {
	claims, apiErr := s.parse(accessToken, tokenTypeAccess)
	if apiErr != nil {
		return
	}
	if err := s.revocations.Revoke(ctx, accessToken, claims.ExpiresAt.Time); err != nil {
		logging.Warn().Err(err).Str("user_id", claims.Subject).Msg("token revocation failed")
	}
}

func (s *AuthService) parse(tokenString, tokenType string) (*tokenClaims, *apperrors.APIError) {
	if tokenString == "" {
		return nil, apperrors.Unauthorized("missing token")
	}
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}
	if claims.TokenType != tokenType {
		return nil, apperrors.Unauthorized("invalid token type")
	}
	if claims.Subject == "" {
		return nil, apperrors.Unauthorized("invalid token subject")
	}
	return claims, nil
}

func (s *AuthService) issue(user model.User) (*AuthResult, *apperrors.APIError) {
	now := time.Now().UTC()
	accessToken, apiErr := s.sign(user.ID, tokenTypeAccess, now, s.tokenTTL)
	if apiErr != nil {
		return nil, apiErr
	}
	refreshToken, apiErr := s.sign(user.ID, tokenTypeRefresh, now, s.refreshTTL)
	if apiErr != nil {
		return nil, apiErr
	}

	user.PasswordHash = ""
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.tokenTTL),
		User:         user,
	}, nil
}

func (s *AuthService) sign(userID, tokenType string, now time.Time, ttl time.Duration) (string, *apperrors.APIError) {
	claims := tokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", apperrors.Internal("failed to sign token")
	}
	return signed, nil
}
