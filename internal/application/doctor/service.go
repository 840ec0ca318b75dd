// Package doctor reports configuration and backend reachability to operators.
package doctor

import (
	"context"
	"time"

	"github.com/go-otp-gate/internal/config"
	"github.com/rs/zerolog/log"
)

const probeTimeout = 3 * time.Second

// Pinger probes one backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report never carries secrets, only whether each setting is present.
type Report struct {
	Env        map[string]bool `json:"env"`
	BackendOK  bool            `json:"backend_ok"`
	OTPStoreOK *bool           `json:"otp_store_ok,omitempty"`
}

type Service interface {
	Report(ctx context.Context) Report
}

type service struct {
	cfg      *config.Config
	backend  Pinger
	otpStore Pinger
}

// NewService builds the doctor. otpStore is only probed when it differs from
// the main backend and may be nil.
func NewService(cfg *config.Config, backend, otpStore Pinger) Service {
	return &service{cfg: cfg, backend: backend, otpStore: otpStore}
}

func (s *service) Report(ctx context.Context) Report {
	r := Report{
		Env: map[string]bool{
			"production":      s.cfg.IsProduction(),
			"dev_otp_mode":    s.cfg.DevOTPMode,
			"sendgrid":        s.cfg.SendGridAPIKey != "",
			"smtp":            s.cfg.SMTPHost != "",
			"sms":             s.cfg.SNSRegion != "",
			"redis":           s.cfg.RedisURL != "",
			"aws_endpoint":    s.cfg.AWSEndpointURL != "",
			"aws_credentials": s.cfg.AWSAccessKeyID != "",
			"admin_allowlist": len(s.cfg.AdminEmails) > 0,
		},
		BackendOK: probe(ctx, "backend", s.backend),
	}
	if s.otpStore != nil {
		ok := probe(ctx, "otp_store", s.otpStore)
		r.OTPStoreOK = &ok
	}
	return r
}

func probe(ctx context.Context, name string, p Pinger) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("probe", name).Msg("doctor probe failed")
		return false
	}
	return true
}
