package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-otp-gate/internal/application/admin"
	"github.com/go-otp-gate/internal/application/auth"
	"github.com/go-otp-gate/internal/application/delivery"
	"github.com/go-otp-gate/internal/application/doctor"
	"github.com/go-otp-gate/internal/application/location"
	"github.com/go-otp-gate/internal/application/otp"
	"github.com/go-otp-gate/internal/application/presence"
	"github.com/go-otp-gate/internal/application/profile"
	"github.com/go-otp-gate/internal/application/role"
	"github.com/go-otp-gate/internal/application/session"
	"github.com/go-otp-gate/internal/application/userinfo"
	"github.com/go-otp-gate/internal/config"
	"github.com/go-otp-gate/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-otp-gate/internal/infrastructure/jwt"
	redisstore "github.com/go-otp-gate/internal/infrastructure/redis"
	"github.com/go-otp-gate/internal/infrastructure/sendgrid"
	"github.com/go-otp-gate/internal/infrastructure/smtp"
	"github.com/go-otp-gate/internal/infrastructure/sns"
	"github.com/go-otp-gate/internal/pkg/logger"
	transporthttp "github.com/go-otp-gate/internal/transport/http"
	appmiddleware "github.com/go-otp-gate/internal/transport/http/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.New(cfg.AppEnv, cfg.LogLevel)
	if envErr != nil {
		log.Info().Msg("no .env file found, reading from environment")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("dynamodb client")
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	users := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	profiles := dynamo.NewProfileRepo(dynamoClient, cfg.DynamoTables.Profiles)
	sessionValues := dynamo.NewSessionValueRepo(dynamoClient, cfg.DynamoTables.SessionValues)
	presenceRepo := dynamo.NewPresenceRepo(dynamoClient, cfg.DynamoTables.Presence)
	roleRepo := dynamo.NewRoleRepo(dynamoClient, cfg.DynamoTables.RoleAssignments)
	events := dynamo.NewUserEventRepo(dynamoClient, cfg.DynamoTables.UserEvents)
	devices := dynamo.NewDeviceRepo(dynamoClient, cfg.DynamoTables.Devices)

	// OTP store: DynamoDB by default, Redis when OTP_BACKEND=redis.
	var (
		otpStore     otp.Store
		otpStorePing doctor.Pinger
	)
	switch cfg.OTPBackend {
	case "redis":
		rdb, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer rdb.Close()
		repo := redisstore.NewOTPRepo(rdb)
		otpStore, otpStorePing = repo, repo
	default:
		otpStore = dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.OTPCodes)
	}

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		log.Fatal().Err(err).Msg("trusted proxies")
	}

	tokens, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("jwt provider")
	}

	deliverySvc := delivery.NewService(deliveryOptions(ctx, cfg))

	// Role resolution: allowlists from env, overridden by role_assignments rows.
	resolver := role.NewTableResolver(roleRepo, role.NewStaticResolver(cfg.AdminEmails, cfg.ModeratorEmails))
	if err := resolver.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("role assignments not loaded, using env allowlists")
	}

	profileSvc := profile.NewService(profiles, users)
	locationSvc := location.NewService(devices, users, cfg.LocationMaxDistanceKM)

	deps := &transporthttp.Deps{
		Auth: auth.NewService(auth.Deps{
			Users:    users,
			Codes:    otp.NewService(otpStore, cfg.OTPTTL, cfg.OTPLength),
			Sender:   deliverySvc,
			Profiles: profileSvc,
			Devices:  locationSvc,
			Tokens:   tokens,
		}),
		Location: locationSvc,
		Profiles: profileSvc,
		Sessions: session.NewService(sessionValues),
		Presence: presence.NewService(presenceRepo, cfg.PresenceWindow),
		UserInfo: userinfo.NewService(events),
		Admin: admin.NewService(admin.Deps{
			Users:         users,
			Profiles:      profiles,
			Presence:      presenceRepo,
			SessionValues: sessionValues,
			Devices:       devices,
			Roles:         resolver,
		}),
		Roles:    role.NewService(roleRepo, resolver),
		Doctor:   doctor.NewService(cfg, dynamo.NewPinger(dynamoClient, cfg.DynamoTables.Users), otpStorePing),
		Tokens:   tokens,
		Resolver: resolver,
		Accounts: users,
		Proxies:  proxies,
	}

	// 5 requests/second, burst of 10, applied to code-sending and credential endpoints.
	limiter := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.AppPort).Str("env", cfg.AppEnv).Bool("debug_endpoints", cfg.DebugEnabled()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
		return
	}
	log.Info().Msg("server stopped")
}

// deliveryOptions builds only the providers that are configured. Unset
// providers stay nil interfaces.
func deliveryOptions(ctx context.Context, cfg *config.Config) delivery.Options {
	opts := delivery.Options{DevMode: cfg.DevOTPMode, TTL: cfg.OTPTTL}
	var mailers []delivery.Mailer
	if cfg.SendGridAPIKey != "" {
		mailers = append(mailers, sendgrid.NewClient(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName))
	}
	if cfg.SMTPHost != "" {
		mailers = append(mailers, smtp.NewMailer(cfg))
	}
	if len(mailers) > 0 {
		opts.Primary = mailers[0]
	}
	if len(mailers) > 1 {
		opts.Fallback = mailers[1]
	}
	if cfg.SNSRegion != "" {
		awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg, cfg.SNSRegion)
		if err != nil {
			log.Warn().Err(err).Msg("sms delivery disabled")
		} else {
			opts.SMS = sns.NewSender(awsCfg)
		}
	}
	return opts
}
