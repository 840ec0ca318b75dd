// Package userinfo records client-reported events per user.
package userinfo

import (
	"context"
	"strings"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/id"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type eventStore interface {
	Put(ctx context.Context, e *domain.UserEvent) error
	ListRecent(ctx context.Context, userID string, limit int32) ([]domain.UserEvent, error)
}

// RecordInput is the body of POST /user-info.
type RecordInput struct {
	Event string         `json:"event" validate:"required,max=64"`
	Data  map[string]any `json:"data"`
}

type Service interface {
	Record(ctx context.Context, userID string, input RecordInput, ip, userAgent string) (*domain.UserEvent, error)
	List(ctx context.Context, userID string, limit int) ([]domain.UserEvent, error)
}

type service struct {
	repo eventStore
}

func NewService(repo eventStore) Service {
	return &service{repo: repo}
}

func (s *service) Record(ctx context.Context, userID string, input RecordInput, ip, userAgent string) (*domain.UserEvent, error) {
	e := &domain.UserEvent{
		UserID:    userID,
		EventID:   id.New(),
		Event:     strings.TrimSpace(input.Event),
		Data:      input.Data,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) List(ctx context.Context, userID string, limit int) ([]domain.UserEvent, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.repo.ListRecent(ctx, userID, int32(limit))
}
