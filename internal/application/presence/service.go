// Package presence tracks when users were last seen.
package presence

import (
	"context"
	"time"

	"github.com/go-otp-gate/internal/domain"
)

type presenceStore interface {
	Put(ctx context.Context, p *domain.Presence) error
	Get(ctx context.Context, userID string) (*domain.Presence, error)
	SeenSince(ctx context.Context, since time.Time) ([]domain.Presence, error)
}

type Service interface {
	Beat(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*domain.Presence, error)
	// Online lists users whose last heartbeat is within the presence window.
	Online(ctx context.Context) ([]domain.Presence, error)
}

type service struct {
	repo   presenceStore
	window time.Duration
	now    func() time.Time
}

func NewService(repo presenceStore, window time.Duration) Service {
	return &service{repo: repo, window: window, now: time.Now}
}

func (s *service) Beat(ctx context.Context, userID string) error {
	now := s.now().UTC()
	return s.repo.Put(ctx, &domain.Presence{UserID: userID, LastSeenAt: now, LastSeenUnix: now.Unix()})
}

func (s *service) Get(ctx context.Context, userID string) (*domain.Presence, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Online(ctx context.Context) ([]domain.Presence, error) {
	return s.repo.SeenSince(ctx, s.now().Add(-s.window))
}
