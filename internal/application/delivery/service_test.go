package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, to, subject, text, html string) (string, error) {
	args := m.Called(ctx, to, subject, text, html)
	return args.String(0), args.Error(1)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, message string) (string, error) {
	args := m.Called(ctx, to, message)
	return args.String(0), args.Error(1)
}

// --- tests ---

func TestSendOTP_DevModeSkipsProviders(t *testing.T) {
	primary := new(mockMailer)
	svc := NewService(Options{Primary: primary, DevMode: true, TTL: 10 * time.Minute})

	msgID, err := svc.SendOTP(context.Background(), "a@b.com", "123456", domain.PurposeLogin)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msgID, "dev-"))
	primary.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendOTP_PrimaryRendersCode(t *testing.T) {
	primary := new(mockMailer)
	primary.On("Send", mock.Anything, "a@b.com", "Your sign-in code",
		mock.MatchedBy(func(text string) bool { return strings.Contains(text, "123456") }),
		mock.MatchedBy(func(html string) bool {
			return strings.Contains(html, "123456") && strings.Contains(html, "10 minutes")
		}),
	).Return("sg-1", nil)
	svc := NewService(Options{Primary: primary, TTL: 10 * time.Minute})

	msgID, err := svc.SendOTP(context.Background(), " A@B.com", "123456", domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, "sg-1", msgID)
	primary.AssertExpectations(t)
}

func TestSendOTP_FallsBackToSMTP(t *testing.T) {
	primary, fallback := new(mockMailer), new(mockMailer)
	primary.On("Send", mock.Anything, "a@b.com", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("sendgrid 500"))
	fallback.On("Send", mock.Anything, "a@b.com", "Finish creating your account", mock.Anything, mock.Anything).Return("smtp-1", nil)
	svc := NewService(Options{Primary: primary, Fallback: fallback, TTL: 5 * time.Minute})

	msgID, err := svc.SendOTP(context.Background(), "a@b.com", "123456", domain.PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, "smtp-1", msgID)
	fallback.AssertExpectations(t)
}

func TestSendOTP_BothMailersFail(t *testing.T) {
	primary, fallback := new(mockMailer), new(mockMailer)
	primary.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("sendgrid 500"))
	fallback.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection refused"))
	svc := NewService(Options{Primary: primary, Fallback: fallback, TTL: time.Minute})

	_, err := svc.SendOTP(context.Background(), "a@b.com", "123456", domain.PurposeLogin)
	assert.ErrorContains(t, err, "sendgrid 500")
	assert.ErrorContains(t, err, "connection refused")
}

func TestSendOTP_NoMailerConfigured(t *testing.T) {
	svc := NewService(Options{TTL: time.Minute})
	_, err := svc.SendOTP(context.Background(), "a@b.com", "123456", domain.PurposeLogin)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestSendOTP_PhoneUsesSMS(t *testing.T) {
	sms := new(mockSMS)
	sms.On("SendSMS", mock.Anything, "+16502530000", mock.MatchedBy(func(m string) bool {
		return strings.Contains(m, "654321")
	})).Return("sns-1", nil)
	svc := NewService(Options{SMS: sms, TTL: 10 * time.Minute})

	msgID, err := svc.SendOTP(context.Background(), "+1 650-253-0000", "654321", domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, "sns-1", msgID)
}

func TestSendOTP_PhoneWithoutSMS(t *testing.T) {
	svc := NewService(Options{TTL: time.Minute})
	_, err := svc.SendOTP(context.Background(), "+16502530000", "654321", domain.PurposeLogin)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestSendOTP_InvalidContact(t *testing.T) {
	svc := NewService(Options{DevMode: true})
	_, err := svc.SendOTP(context.Background(), "not a contact", "123456", domain.PurposeLogin)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}
