package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/contact"
	"github.com/go-otp-gate/internal/pkg/hashutil"
)

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Put(ctx context.Context, p *domain.Profile) error
}

type userLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Service interface {
	// Get returns the stored profile, or an empty one if none was saved yet.
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Upsert(ctx context.Context, userID string, input domain.ProfileInput) (*domain.Profile, error)
	MarkEmailVerified(ctx context.Context, userID string) error
	// MarkPhoneVerified flags phone as verified if it is still the profile's number.
	MarkPhoneVerified(ctx context.Context, userID, phone string) error
	Questions(ctx context.Context, email string) ([]string, error)
	VerifyAnswer(ctx context.Context, email string, index int, answer string) (bool, error)
}

type service struct {
	profiles profileStore
	users    userLookup
}

func NewService(profiles profileStore, users userLookup) Service {
	return &service{profiles: profiles, users: users}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Profile{ID: userID, SecurityQuestions: []domain.SecurityQuestion{}}, nil
	}
	return p, err
}

func (s *service) Upsert(ctx context.Context, userID string, input domain.ProfileInput) (*domain.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.PhoneNumber != nil {
		phone, err := normalizePhone(*input.PhoneNumber)
		if err != nil {
			return nil, err
		}
		if phone != p.PhoneNumber {
			p.PhoneNumber = phone
			p.PhoneVerified = false
		}
	}
	if input.SecurityQuestions != nil {
		qs := make([]domain.SecurityQuestion, 0, len(input.SecurityQuestions))
		for _, in := range input.SecurityQuestions {
			h, err := hashutil.Hash(normalizeAnswer(in.Answer), "")
			if err != nil {
				return nil, err
			}
			qs = append(qs, domain.SecurityQuestion{
				Question:   strings.TrimSpace(in.Question),
				AnswerHash: h.Hash,
				AnswerSalt: h.Salt,
			})
		}
		p.SecurityQuestions = qs
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.profiles.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) MarkEmailVerified(ctx context.Context, userID string) error {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	p.EmailVerified = true
	p.UpdatedAt = time.Now().UTC()
	return s.profiles.Put(ctx, p)
}

func (s *service) MarkPhoneVerified(ctx context.Context, userID, phone string) error {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if p.PhoneNumber == "" || p.PhoneNumber != phone {
		return fmt.Errorf("phone number changed: %w", domain.ErrConflict)
	}
	p.PhoneVerified = true
	p.UpdatedAt = time.Now().UTC()
	return s.profiles.Put(ctx, p)
}

func (s *service) Questions(ctx context.Context, email string) ([]string, error) {
	p, err := s.profileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(p.SecurityQuestions))
	for _, q := range p.SecurityQuestions {
		out = append(out, q.Question)
	}
	return out, nil
}

// VerifyAnswer compares answers trimmed and case-insensitively.
func (s *service) VerifyAnswer(ctx context.Context, email string, index int, answer string) (bool, error) {
	p, err := s.profileByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(p.SecurityQuestions) {
		return false, fmt.Errorf("security question %d: %w", index, domain.ErrNotFound)
	}
	q := p.SecurityQuestions[index]
	return hashutil.Verify(normalizeAnswer(answer), q.AnswerHash, q.AnswerSalt), nil
}

func (s *service) profileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	u, err := s.users.GetByEmail(ctx, contact.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return s.profiles.Get(ctx, u.UserID)
}

func normalizeAnswer(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}

func normalizePhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	phone, kind := contact.Parse(raw)
	if kind != contact.Phone {
		return "", fmt.Errorf("phone_number must be in international format: %w", domain.ErrBadRequest)
	}
	return phone, nil
}
