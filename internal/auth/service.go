package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	userDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/notification"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrDuplicateEmail      = errors.New("email already registered")
)

type CredentialRepository interface {
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
}

// Notifier sends the best-effort welcome email.
type Notifier interface {
	Welcome(ctx context.Context, to notification.Recipient) error
}

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*coreuser.User, error)
	Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error)
	ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error)
	Logout(ctx context.Context, tokenString string) error
}

// Service is the main auth service with dependencies
type Service struct {
	repo           CredentialRepository
	tokenGenerator TokenGenerator
	tokens         TokenStore
	notifier       Notifier
	bcryptCost     int
	logger         *slog.Logger

	dummyHashOnce sync.Once
	dummyHash     []byte
}

var _ ServiceAPI = (*Service)(nil)

// NewService creates a new auth service
func NewService(repo CredentialRepository, tokenGen TokenGenerator, tokens TokenStore, notifier Notifier, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		tokens:         tokens,
		notifier:       notifier,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Register creates an account. The welcome email is best-effort.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*coreuser.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	dto.Normalize()
	role, _ := coreuser.ParseRole(dto.Role)

	if _, err := s.repo.GetByEmail(ctx, dto.Email); err == nil {
		return nil, internal.ErrEmailTaken
	} else if !errors.Is(err, ErrCredentialsNotFound) {
		return nil, internal.NewInternalError("failed to look up user", err)
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	row := &userDatamodel.User{
		ID:           uuid.NewString(),
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: hash,
		Role:         string(role),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, internal.ErrEmailTaken
		}
		return nil, internal.NewInternalError("failed to create user", err)
	}

	u := &coreuser.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         role,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID, "role", u.Role)

	if err := s.notifier.Welcome(ctx, notification.Recipient{Name: u.Name, Email: u.Email}); err != nil {
		s.logger.WarnContext(ctx, "welcome email not sent", "user_id", u.ID, "error", err)
	}

	return u, nil
}

// Login verifies credentials and issues an access token. Unknown email, role
// mismatch and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByEmail(ctx, coreuser.NormalizeEmail(dto.Email))
	if err != nil {
		if errors.Is(err, ErrCredentialsNotFound) {
			s.burnPasswordCheck(dto.Password)
			return nil, internal.ErrInvalidCreds
		}
		return nil, internal.NewInternalError("failed to look up user", err)
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(dto.Password))
	role, roleOK := coreuser.ParseRole(dto.Role)
	if passwordErr != nil || !roleOK || string(role) != row.Role {
		s.logger.InfoContext(ctx, "login rejected", "user_id", row.ID)
		return nil, internal.ErrInvalidCreds
	}

	issued, err := s.tokenGenerator.GenerateAccessToken(row.ID, role)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	return &LoginResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		User: coreuser.Summary{
			ID:    row.ID,
			Name:  row.Name,
			Email: row.Email,
			Role:  role,
		},
	}, nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check token revocation", err)
	}
	if revoked {
		return nil, internal.ErrInvalidToken
	}

	return claims, nil
}

// Logout revokes the token until it expires.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.ValidateAccessToken(ctx, tokenString)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.tokens.Revoke(ctx, claims.ID, ttl); err != nil {
		return internal.NewInternalError("failed to revoke token", err)
	}

	s.logger.InfoContext(ctx, "user logged out", "user_id", claims.UserID)
	return nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// burnPasswordCheck spends a bcrypt comparison so that unknown emails take as
// long to reject as wrong passwords.
func (s *Service) burnPasswordCheck(password string) {
	s.dummyHashOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}
