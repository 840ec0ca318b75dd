package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"3000"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	JWTPrivateKeyPath   string        `env:"JWT_PRIVATE_KEY_PATH" envDefault:"./private_key.pem"`
	JWTPublicKeyPath    string        `env:"JWT_PUBLIC_KEY_PATH" envDefault:"./public_key.pem"`
	JWTExpiry           time.Duration `env:"JWT_EXPIRY" envDefault:"168h"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"otp_session"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	EmailFrom      string `env:"EMAIL_FROM" envDefault:"noreply@example.com"`
	EmailFromName  string `env:"EMAIL_FROM_NAME" envDefault:"Account Security"`
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"1025"`
	SMTPUsername   string `env:"SMTP_USERNAME"`
	SMTPPassword   string `env:"SMTP_PASSWORD"`
	SNSRegion      string `env:"SNS_REGION"`

	DevOTPMode bool          `env:"DEV_OTP_MODE" envDefault:"false"`
	OTPTTL     time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPLength  int           `env:"OTP_LENGTH" envDefault:"6"`
	OTPBackend string        `env:"OTP_BACKEND" envDefault:"dynamo"` // "dynamo" | "redis"
	RedisURL   string        `env:"REDIS_URL"`

	AdminEmails     []string `env:"ADMIN_EMAILS" envSeparator:","`
	ModeratorEmails []string `env:"MODERATOR_EMAILS" envSeparator:","`

	// DebugEndpoints mounts /doctor and /debug/*. Nil means "on outside production".
	DebugEndpoints *bool    `env:"DEBUG_ENDPOINTS"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"` // CORS allowed origins
	// TrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-For and
	// X-Real-Ip headers are believed. Empty means trust none.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	PresenceWindow        time.Duration `env:"PRESENCE_WINDOW" envDefault:"2m"`
	LocationMaxDistanceKM float64       `env:"LOCATION_MAX_DISTANCE_KM" envDefault:"500"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users           string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	Profiles        string `env:"DYNAMO_TABLE_PROFILES" envDefault:"profiles"`
	OTPCodes        string `env:"DYNAMO_TABLE_OTP_CODES" envDefault:"otp_codes"`
	SessionValues   string `env:"DYNAMO_TABLE_SESSION_VALUES" envDefault:"session_values"`
	Presence        string `env:"DYNAMO_TABLE_PRESENCE" envDefault:"presence"`
	RoleAssignments string `env:"DYNAMO_TABLE_ROLE_ASSIGNMENTS" envDefault:"role_assignments"`
	UserEvents      string `env:"DYNAMO_TABLE_USER_EVENTS" envDefault:"user_events"`
	Devices         string `env:"DYNAMO_TABLE_DEVICES" envDefault:"devices"`
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	cfg.AdminEmails = normalizeEmails(cfg.AdminEmails)
	cfg.ModeratorEmails = normalizeEmails(cfg.ModeratorEmails)
	return &cfg, nil
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.OTPLength < 4 || c.OTPLength > 10 {
		errs = append(errs, errors.New("OTP_LENGTH must be between 4 and 10"))
	}
	if c.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	switch c.OTPBackend {
	case "dynamo":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when OTP_BACKEND=redis"))
		}
	default:
		errs = append(errs, errors.New("OTP_BACKEND must be dynamo or redis"))
	}
	if !c.DevOTPMode && c.SendGridAPIKey == "" && c.SMTPHost == "" {
		errs = append(errs, errors.New("one of SENDGRID_API_KEY or SMTP_HOST is required unless DEV_OTP_MODE is set"))
	}
	if c.DevOTPMode && c.IsProduction() {
		errs = append(errs, errors.New("DEV_OTP_MODE must not be enabled in production"))
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. A bare address becomes a
// single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// DebugEnabled reports whether operator endpoints should be mounted.
func (c *Config) DebugEnabled() bool {
	if c.DebugEndpoints != nil {
		return *c.DebugEndpoints
	}
	return !c.IsProduction()
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
