package role

import (
	"context"
	"fmt"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type assignmentStore interface {
	assignmentLister
	Put(ctx context.Context, a *domain.RoleAssignment) error
}

type refresher interface {
	Refresh(ctx context.Context) error
}

type Service interface {
	List(ctx context.Context) ([]domain.RoleAssignment, error)
	Assign(ctx context.Context, input domain.RoleAssignmentInput) (*domain.RoleAssignment, error)
}

type service struct {
	repo     assignmentStore
	resolver refresher
}

// NewService returns the assignment service. resolver, when non-nil, is
// refreshed after every write so new roles apply to the next request.
func NewService(repo assignmentStore, resolver refresher) Service {
	return &service{repo: repo, resolver: resolver}
}

func (s *service) List(ctx context.Context) ([]domain.RoleAssignment, error) {
	return s.repo.Scan(ctx)
}

func (s *service) Assign(ctx context.Context, input domain.RoleAssignmentInput) (*domain.RoleAssignment, error) {
	r, ok := domain.ParseRole(input.Role)
	if !ok {
		return nil, fmt.Errorf("unknown role %q: %w", input.Role, domain.ErrBadRequest)
	}
	a := &domain.RoleAssignment{
		Email:     normalize(input.Email),
		RoleID:    uuid.NewString(),
		Role:      r,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, a); err != nil {
		return nil, err
	}
	if s.resolver != nil {
		if err := s.resolver.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("role snapshot refresh failed")
		}
	}
	return a, nil
}
