// Package session stores small per-user key/value entries with an expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-otp-gate/internal/domain"
)

const (
	DefaultTTL = 24 * time.Hour
	MaxTTL     = 30 * 24 * time.Hour
)

type valueStore interface {
	Put(ctx context.Context, v *domain.SessionValue) error
	Get(ctx context.Context, userID, key string, nowUnix int64) (*domain.SessionValue, error)
	Delete(ctx context.Context, userID, key string) error
}

type Service interface {
	// Get returns nil when the key is missing or expired.
	Get(ctx context.Context, userID, key string) (*string, error)
	// Set stores value for ttl; zero means DefaultTTL.
	Set(ctx context.Context, userID, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, userID, key string) error
}

type service struct {
	repo valueStore
	now  func() time.Time
}

func NewService(repo valueStore) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Get(ctx context.Context, userID, key string) (*string, error) {
	now := s.now()
	v, err := s.repo.Get(ctx, userID, key, now.Unix())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if v.Expired(now) {
		return nil, nil
	}
	return &v.Value, nil
}

func (s *service) Set(ctx context.Context, userID, key, value string, ttl time.Duration) error {
	switch {
	case ttl < 0:
		return fmt.Errorf("ttl must not be negative: %w", domain.ErrBadRequest)
	case ttl == 0:
		ttl = DefaultTTL
	case ttl > MaxTTL:
		ttl = MaxTTL
	}
	return s.repo.Put(ctx, &domain.SessionValue{
		UserID:    userID,
		Key:       key,
		Value:     value,
		ExpiresAt: s.now().Add(ttl).Unix(),
	})
}

func (s *service) Remove(ctx context.Context, userID, key string) error {
	return s.repo.Delete(ctx, userID, key)
}
