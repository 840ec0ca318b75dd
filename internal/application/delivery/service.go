// Package delivery sends one-time codes to an email address or phone number.
package delivery

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/contact"
	"github.com/go-otp-gate/internal/pkg/id"
	"github.com/rs/zerolog/log"
)

//go:embed templates/otp.html
var templateFS embed.FS

var otpTemplate = template.Must(template.ParseFS(templateFS, "templates/otp.html"))

// Mailer sends a multipart email and returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) (string, error)
}

// SMSSender sends a text message and returns the provider message id.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) (string, error)
}

type Service interface {
	// SendOTP delivers code to contact and returns the message id.
	SendOTP(ctx context.Context, to, code, purpose string) (string, error)
	DevMode() bool
}

// Options wires the providers. Any of them may be nil.
type Options struct {
	Primary  Mailer
	Fallback Mailer
	SMS      SMSSender
	DevMode  bool
	TTL      time.Duration
}

type service struct {
	primary  Mailer
	fallback Mailer
	sms      SMSSender
	devMode  bool
	ttl      time.Duration
}

func NewService(opts Options) Service {
	return &service{
		primary:  opts.Primary,
		fallback: opts.Fallback,
		sms:      opts.SMS,
		devMode:  opts.DevMode,
		ttl:      opts.TTL,
	}
}

func (s *service) DevMode() bool { return s.devMode }

func (s *service) SendOTP(ctx context.Context, to, code, purpose string) (string, error) {
	addr, kind := contact.Parse(to)
	if kind == contact.Unknown {
		return "", fmt.Errorf("unsupported contact: %w", domain.ErrBadRequest)
	}
	if s.devMode {
		msgID := id.Prefixed("dev")
		log.Info().Str("contact", addr).Str("purpose", purpose).Str("code", code).Str("message_id", msgID).Msg("dev otp mode: delivery skipped")
		return msgID, nil
	}
	if kind == contact.Phone {
		if s.sms == nil {
			return "", fmt.Errorf("sms delivery not configured: %w", domain.ErrUnavailable)
		}
		return s.sms.SendSMS(ctx, addr, fmt.Sprintf("%s: %s (expires in %d min)", headline(purpose), code, s.minutes()))
	}
	return s.sendEmail(ctx, addr, code, purpose)
}

func (s *service) sendEmail(ctx context.Context, to, code, purpose string) (string, error) {
	subject := headline(purpose)
	html, err := s.render(code, purpose)
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("%s\n\nYour code is %s. It expires in %d minutes.\n", subject, code, s.minutes())

	if s.primary == nil && s.fallback == nil {
		return "", fmt.Errorf("email delivery not configured: %w", domain.ErrUnavailable)
	}
	var primaryErr error
	if s.primary != nil {
		msgID, err := s.primary.Send(ctx, to, subject, text, html)
		if err == nil {
			return msgID, nil
		}
		if s.fallback == nil {
			return "", err
		}
		primaryErr = err
		log.Warn().Err(err).Msg("primary mailer failed, falling back to smtp")
	}
	msgID, err := s.fallback.Send(ctx, to, subject, text, html)
	if err != nil {
		return "", errors.Join(primaryErr, err)
	}
	return msgID, nil
}

func (s *service) render(code, purpose string) (string, error) {
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, struct {
		Headline string
		Code     string
		Minutes  int
	}{headline(purpose), code, s.minutes()})
	if err != nil {
		return "", fmt.Errorf("render otp email: %w", err)
	}
	return buf.String(), nil
}

func (s *service) minutes() int {
	m := int(s.ttl / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

func headline(purpose string) string {
	switch purpose {
	case domain.PurposeSignup:
		return "Finish creating your account"
	case domain.PurposeEmail:
		return "Confirm your email address"
	case domain.PurposePhone:
		return "Confirm your phone number"
	}
	return "Your sign-in code"
}
