package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/leave-management/internal"
	userDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/leave-management/internal/core/user"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*userDatamodel.User, error)
	ListByRole(ctx context.Context, role string) ([]*userDatamodel.User, error)
	SearchIDsByName(ctx context.Context, term string) ([]string, error)
}

// Service is the read side of the user directory.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*coreuser.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return FromDataModel(u), nil
}

// GetByIDs returns the users found, keyed by id. Unknown ids are skipped.
func (s *Service) GetByIDs(ctx context.Context, ids []string) (map[string]*coreuser.User, error) {
	out := make(map[string]*coreuser.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = FromDataModel(row)
	}
	return out, nil
}

func (s *Service) ListAdmins(ctx context.Context) ([]*coreuser.User, error) {
	rows, err := s.repo.ListByRole(ctx, string(coreuser.RoleAdmin))
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	admins := make([]*coreuser.User, 0, len(rows))
	for _, row := range rows {
		admins = append(admins, FromDataModel(row))
	}
	return admins, nil
}

// SearchIDsByName returns ids of users whose name contains term, ignoring case.
func (s *Service) SearchIDsByName(ctx context.Context, term string) ([]string, error) {
	ids, err := s.repo.SearchIDsByName(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return ids, nil
}
