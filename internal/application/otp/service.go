// Package otp issues and verifies short-lived numeric codes.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/id"
)

// Store persists issued codes. Implemented by the DynamoDB and Redis repos.
type Store interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
	Latest(ctx context.Context, key string) (*domain.OTPRecord, error)
	Consume(ctx context.Context, key, otpID string) error
	// RecordFailure counts one wrong guess against the code.
	RecordFailure(ctx context.Context, key, otpID string) error
}

type Service interface {
	// Issue stores a fresh code for identifier+purpose and returns it.
	// Earlier unconsumed codes stay stored but can no longer verify.
	Issue(ctx context.Context, identifier, purpose string) (string, error)
	// Verify reports whether code matches the latest unexpired, unconsumed
	// code and consumes it. A code stops verifying after MaxOTPAttempts
	// wrong guesses. Only store failures are returned as errors.
	Verify(ctx context.Context, identifier, code, purpose string) (bool, error)
	TTL() time.Duration
}

type service struct {
	store  Store
	ttl    time.Duration
	length int
	now    func() time.Time
}

func NewService(store Store, ttl time.Duration, length int) Service {
	return &service{store: store, ttl: ttl, length: length, now: time.Now}
}

func (s *service) TTL() time.Duration { return s.ttl }

func (s *service) Issue(ctx context.Context, identifier, purpose string) (string, error) {
	identifier, err := normalize(identifier, purpose)
	if err != nil {
		return "", err
	}
	code, err := generateCode(s.length)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	rec := &domain.OTPRecord{
		Key:        domain.OTPKey(identifier, purpose),
		OTPID:      id.New(),
		Identifier: identifier,
		Purpose:    purpose,
		Code:       code,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl).Unix(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

func (s *service) Verify(ctx context.Context, identifier, code, purpose string) (bool, error) {
	identifier, err := normalize(identifier, purpose)
	if err != nil {
		return false, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	key := domain.OTPKey(identifier, purpose)
	rec, err := s.store.Latest(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load otp: %w", err)
	}
	if rec.Consumed || rec.Expired(s.now()) || rec.Attempts >= domain.MaxOTPAttempts {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		if err := s.store.RecordFailure(ctx, key, rec.OTPID); err != nil {
			return false, fmt.Errorf("record otp failure: %w", err)
		}
		return false, nil
	}
	err = s.store.Consume(ctx, key, rec.OTPID)
	if errors.Is(err, domain.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	return true, nil
}

func normalize(identifier, purpose string) (string, error) {
	if !domain.ValidPurpose(purpose) {
		return "", fmt.Errorf("unknown otp purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return "", fmt.Errorf("identifier required: %w", domain.ErrBadRequest)
	}
	return identifier, nil
}

func generateCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
