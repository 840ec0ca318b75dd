// Package redisstore keeps one-time codes in Redis as an alternative to DynamoDB.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/redis/go-redis/v9"
)

// OTPRepo stores only the latest code per identifier+purpose; a reissue
// overwrites it. Consumption is a separate SETNX marker so two concurrent
// verifies cannot both win.
type OTPRepo struct {
	rdb *redis.Client
	now func() time.Time
}

func NewOTPRepo(rdb *redis.Client) *OTPRepo {
	return &OTPRepo{rdb: rdb, now: time.Now}
}

func latestKey(key string) string { return "otp:" + key }
func consumedKey(key, otpID string) string { return "otp:" + key + ":consumed:" + otpID }
func attemptsKey(key, otpID string) string { return "otp:" + key + ":attempts:" + otpID }

// markerTTL bounds the per-code side keys; it outlives any configured code TTL.
const markerTTL = 24 * time.Hour

func (r *OTPRepo) ttl(rec *domain.OTPRecord) time.Duration {
	d := time.Unix(rec.ExpiresAt, 0).Sub(r.now())
	if d < time.Second {
		d = time.Second
	}
	return d
}

func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	b, err := json.Marshal(storedOTP{
		OTPID:      rec.OTPID,
		Identifier: rec.Identifier,
		Purpose:    rec.Purpose,
		Code:       rec.Code,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	return r.rdb.Set(ctx, latestKey(rec.Key), b, r.ttl(rec)).Err()
}

// Latest returns the current code for key with Consumed and Attempts read
// from the side keys.
func (r *OTPRepo) Latest(ctx context.Context, key string) (*domain.OTPRecord, error) {
	b, err := r.rdb.Get(ctx, latestKey(key)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var s storedOTP
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal otp: %w", err)
	}
	pipe := r.rdb.Pipeline()
	consumed := pipe.Exists(ctx, consumedKey(key, s.OTPID))
	attempts := pipe.Get(ctx, attemptsKey(key, s.OTPID))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	n, err := attempts.Int()
	if err == redis.Nil {
		n = 0
	} else if err != nil {
		return nil, fmt.Errorf("read otp attempts: %w", err)
	}
	return &domain.OTPRecord{
		Key:        key,
		OTPID:      s.OTPID,
		Identifier: s.Identifier,
		Purpose:    s.Purpose,
		Code:       s.Code,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
		Consumed:   consumed.Val() > 0,
		Attempts:   n,
	}, nil
}

// Consume sets the consumed marker with SETNX. A code already consumed or
// out of guesses returns ErrConflict.
func (r *OTPRepo) Consume(ctx context.Context, key, otpID string) error {
	n, err := r.rdb.Get(ctx, attemptsKey(key, otpID)).Int()
	if err != nil && err != redis.Nil {
		return err
	}
	if n >= domain.MaxOTPAttempts {
		return fmt.Errorf("otp attempts exhausted: %w", domain.ErrConflict)
	}
	ok, err := r.rdb.SetNX(ctx, consumedKey(key, otpID), 1, markerTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("otp already consumed: %w", domain.ErrConflict)
	}
	return nil
}

// RecordFailure increments the code's attempts counter.
func (r *OTPRepo) RecordFailure(ctx context.Context, key, otpID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Incr(ctx, attemptsKey(key, otpID))
	pipe.Expire(ctx, attemptsKey(key, otpID), markerTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Ping reports whether Redis answers.
func (r *OTPRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

type storedOTP struct {
	OTPID      string    `json:"id"`
	Identifier string    `json:"identifier"`
	Purpose    string    `json:"purpose"`
	Code       string    `json:"code"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  int64     `json:"expires_at"`
}

// NewClient parses a redis:// URL and returns a connected client.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
