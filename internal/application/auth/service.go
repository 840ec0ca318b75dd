// Package auth implements the OTP, signup and password sign-in flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/contact"
	"github.com/go-otp-gate/internal/pkg/hashutil"
	"github.com/go-otp-gate/internal/pkg/id"
	"github.com/rs/zerolog/log"
)

var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type codeIssuer interface {
	Issue(ctx context.Context, identifier, purpose string) (string, error)
	Verify(ctx context.Context, identifier, code, purpose string) (bool, error)
}

type codeSender interface {
	SendOTP(ctx context.Context, to, code, purpose string) (string, error)
	DevMode() bool
}

type profileWriter interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Upsert(ctx context.Context, userID string, input domain.ProfileInput) (*domain.Profile, error)
	MarkEmailVerified(ctx context.Context, userID string) error
	MarkPhoneVerified(ctx context.Context, userID, phone string) error
}

type deviceTruster interface {
	Trust(ctx context.Context, userID string, info domain.DeviceInfo) error
}

type tokenSigner interface {
	Sign(userID, email, sessionID string) (string, error)
}

// SendResult is returned by every send-otp flow. DevCode is only set when
// delivery runs in dev mode.
type SendResult struct {
	MessageID string
	DevCode   string
}

// Session is a signed-in user and the token for the session cookie.
type Session struct {
	Token string
	User  *domain.User
}

type Service interface {
	CheckEmail(ctx context.Context, email string) (bool, error)

	SendLoginOTP(ctx context.Context, email string) (*SendResult, error)
	// VerifyLoginOTP returns nil without error when the code is not valid.
	VerifyLoginOTP(ctx context.Context, email, code string, device domain.DeviceInfo) (*Session, error)

	SendSignupOTP(ctx context.Context, email string) (*SendResult, error)
	Signup(ctx context.Context, req domain.SignupRequest) (*Session, error)
	PasswordLogin(ctx context.Context, req domain.PasswordLoginRequest) (*Session, error)

	SendEmailOTP(ctx context.Context, userID string) (*SendResult, error)
	VerifyEmailOTP(ctx context.Context, userID, code string) (bool, error)
	SendPhoneOTP(ctx context.Context, userID string) (*SendResult, error)
	VerifyPhoneOTP(ctx context.Context, userID, code string) (bool, error)

	Me(ctx context.Context, userID string) (*domain.User, error)
}

// Deps groups the collaborators of the auth service.
type Deps struct {
	Users    userStore
	Codes    codeIssuer
	Sender   codeSender
	Profiles profileWriter
	Devices  deviceTruster
	Tokens   tokenSigner
}

type service struct {
	users    userStore
	codes    codeIssuer
	sender   codeSender
	profiles profileWriter
	devices  deviceTruster
	tokens   tokenSigner
}

func NewService(d Deps) Service {
	return &service{
		users:    d.Users,
		codes:    d.Codes,
		sender:   d.Sender,
		profiles: d.Profiles,
		devices:  d.Devices,
		tokens:   d.Tokens,
	}
}

func (s *service) CheckEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, contact.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) SendLoginOTP(ctx context.Context, email string) (*SendResult, error) {
	return s.send(ctx, contact.NormalizeEmail(email), domain.PurposeLogin)
}

func (s *service) VerifyLoginOTP(ctx context.Context, email, code string, device domain.DeviceInfo) (*Session, error) {
	email = contact.NormalizeEmail(email)
	ok, err := s.codes.Verify(ctx, email, code, domain.PurposeLogin)
	if err != nil || !ok {
		return nil, err
	}
	u, err := s.findOrCreate(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.devices.Trust(ctx, u.UserID, device); err != nil {
		log.Warn().Err(err).Str("user_id", u.UserID).Msg("could not record trusted device")
	}
	return s.issue(u)
}

func (s *service) SendSignupOTP(ctx context.Context, email string) (*SendResult, error) {
	email = contact.NormalizeEmail(email)
	exists, err := s.CheckEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("account already exists: %w", domain.ErrConflict)
	}
	return s.send(ctx, email, domain.PurposeSignup)
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*Session, error) {
	email := contact.NormalizeEmail(req.Email)
	exists, err := s.CheckEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("account already exists: %w", domain.ErrConflict)
	}
	ok, err := s.codes.Verify(ctx, email, req.Code, domain.PurposeSignup)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthorized)
	}
	h, err := hashutil.Hash(req.Password, "")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:        id.New(),
		Email:         email,
		PasswordHash:  h.Hash,
		PasswordSalt:  h.Salt,
		EmailVerified: true,
		Enable:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	// The code is spent and the account exists; a missing profile row is
	// filled by the next profile write.
	if _, err := s.profiles.Upsert(ctx, u.UserID, domain.ProfileInput{DisplayName: &req.DisplayName}); err != nil {
		log.Warn().Err(err).Str("user_id", u.UserID).Msg("could not create profile at signup")
	}
	if err := s.profiles.MarkEmailVerified(ctx, u.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", u.UserID).Msg("could not mark profile email verified")
	}
	return s.issue(u)
}

func (s *service) PasswordLogin(ctx context.Context, req domain.PasswordLoginRequest) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, contact.NormalizeEmail(req.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() || !hashutil.Verify(req.Password, u.PasswordHash, u.PasswordSalt) {
		return nil, errInvalidCredentials
	}
	return s.issue(u)
}

func (s *service) SendEmailOTP(ctx context.Context, userID string) (*SendResult, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, u.Email, domain.PurposeEmail)
}

func (s *service) VerifyEmailOTP(ctx context.Context, userID, code string) (bool, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	ok, err := s.codes.Verify(ctx, u.Email, code, domain.PurposeEmail)
	if err != nil || !ok {
		return false, err
	}
	if !u.EmailVerified {
		if err := s.users.Update(ctx, userID, map[string]interface{}{"email_verified": true}); err != nil {
			return false, err
		}
	}
	if err := s.profiles.MarkEmailVerified(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) SendPhoneOTP(ctx context.Context, userID string) (*SendResult, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.PhoneNumber == "" {
		return nil, fmt.Errorf("profile has no phone number: %w", domain.ErrBadRequest)
	}
	return s.send(ctx, p.PhoneNumber, domain.PurposePhone)
}

func (s *service) VerifyPhoneOTP(ctx context.Context, userID, code string) (bool, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if p.PhoneNumber == "" {
		return false, fmt.Errorf("profile has no phone number: %w", domain.ErrBadRequest)
	}
	ok, err := s.codes.Verify(ctx, p.PhoneNumber, code, domain.PurposePhone)
	if err != nil || !ok {
		return false, err
	}
	if err := s.profiles.MarkPhoneVerified(ctx, userID, p.PhoneNumber); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	return u, nil
}

func (s *service) send(ctx context.Context, to, purpose string) (*SendResult, error) {
	code, err := s.codes.Issue(ctx, to, purpose)
	if err != nil {
		return nil, err
	}
	msgID, err := s.sender.SendOTP(ctx, to, code, purpose)
	if err != nil {
		return nil, err
	}
	res := &SendResult{MessageID: msgID}
	if s.sender.DevMode() {
		res.DevCode = code
	}
	return res, nil
}

func (s *service) findOrCreate(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if !u.EmailVerified {
			if err := s.users.Update(ctx, u.UserID, map[string]interface{}{"email_verified": true}); err != nil {
				return nil, err
			}
			u.EmailVerified = true
		}
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	now := time.Now().UTC()
	u = &domain.User{
		UserID:        id.New(),
		Email:         email,
		EmailVerified: true,
		Enable:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := s.profiles.MarkEmailVerified(ctx, u.UserID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) issue(u *domain.User) (*Session, error) {
	token, err := s.tokens.Sign(u.UserID, u.Email, id.New())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}
