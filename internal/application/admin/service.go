// Package admin implements user management for moderators and admins.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-otp-gate/internal/domain"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	SoftDelete(ctx context.Context, userID string) error
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Delete(ctx context.Context, userID string) error
}

type presenceStore interface {
	Get(ctx context.Context, userID string) (*domain.Presence, error)
	Delete(ctx context.Context, userID string) error
}

type sessionValueStore interface {
	DeleteAllForUser(ctx context.Context, userID string) error
}

type deviceStore interface {
	DeleteByUser(ctx context.Context, userID string) error
}

type roleResolver interface {
	Resolve(email string) domain.Role
}

// UserSummary is a user with the role resolved from its email.
type UserSummary struct {
	*domain.User
	Role domain.Role `json:"role"`
}

// UserDetail is everything the admin panel shows for one user.
type UserDetail struct {
	User     UserSummary      `json:"user"`
	Profile  *domain.Profile  `json:"profile,omitempty"`
	Presence *domain.Presence `json:"presence,omitempty"`
}

// Page is one page of users; NextCursor is empty on the last page.
type Page struct {
	Users      []UserSummary `json:"users"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type Service interface {
	ListUsers(ctx context.Context, limit int, cursor string) (*Page, error)
	GetUser(ctx context.Context, userID string) (*UserDetail, error)
	// DeleteUser disables the account and removes everything keyed by it.
	// An admin cannot delete their own account.
	DeleteUser(ctx context.Context, actorID, userID string) error
}

// Deps groups the stores the admin service reads and deletes from.
type Deps struct {
	Users         userStore
	Profiles      profileStore
	Presence      presenceStore
	SessionValues sessionValueStore
	Devices       deviceStore
	Roles         roleResolver
}

type service struct {
	Deps
}

func NewService(d Deps) Service {
	return &service{Deps: d}
}

func (s *service) ListUsers(ctx context.Context, limit int, cursor string) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	users, next, err := s.Users.ScanPage(ctx, int32(limit), cursor)
	if err != nil {
		return nil, err
	}
	page := &Page{Users: make([]UserSummary, 0, len(users)), NextCursor: next}
	for i := range users {
		page.Users = append(page.Users, s.summary(&users[i]))
	}
	return page, nil
}

func (s *service) GetUser(ctx context.Context, userID string) (*UserDetail, error) {
	u, err := s.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	detail := &UserDetail{User: s.summary(u)}
	if detail.Profile, err = optional(s.Profiles.Get(ctx, userID)); err != nil {
		return nil, err
	}
	if detail.Presence, err = optional(s.Presence.Get(ctx, userID)); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *service) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return fmt.Errorf("cannot delete your own account: %w", domain.ErrForbidden)
	}
	if err := s.Users.SoftDelete(ctx, userID); err != nil {
		return err
	}
	if err := s.Profiles.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := s.SessionValues.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete session values: %w", err)
	}
	if err := s.Presence.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete presence: %w", err)
	}
	if err := s.Devices.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete devices: %w", err)
	}
	return nil
}

func (s *service) summary(u *domain.User) UserSummary {
	return UserSummary{User: u, Role: s.Roles.Resolve(u.Email)}
}

// optional turns ErrNotFound into a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
